//go:build linux && (arm || arm64)

package button

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine requests the BCM GPIO as a pulled-up input and calls onPress on
// every debounced falling edge.
func openLine(cfg Config, onPress func()) (io.Closer, error) {
	// On Pi, line names are commonly "GPIO17", etc.
	lineName := fmt.Sprintf("GPIO%d", cfg.Pin)

	chipCandidates := chipOrder(boardModel())
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventFallingEdge {
			onPress()
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(cfg.Debounce),
			gpiocdev.WithEventHandler(handler),
			gpiocdev.WithConsumer("pimenu-back"),
		)
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLine{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("button: gpio line %q not found (or busy)", lineName)
}

var openLineFn = openLine

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	_ = g.chip.Close()
	return err
}

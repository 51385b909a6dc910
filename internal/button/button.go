// Package button reads an optional hardware push button that acts like the
// on-screen back/close control.
package button

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// Pin is the BCM GPIO number of a button wired to ground.
	Pin      int
	Debounce time.Duration
	Logger   *zap.Logger
}

// Button delivers debounced presses.
type Button struct {
	presses chan struct{}
	closer  io.Closer
	logger  *zap.Logger
}

// Open requests the GPIO line for cfg.Pin.
func Open(cfg Config) (*Button, error) {
	if cfg.Pin <= 0 {
		return nil, fmt.Errorf("button: invalid gpio pin %d", cfg.Pin)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 50 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := newButton(cfg.Logger)
	closer, err := openLineFn(cfg, b.press)
	if err != nil {
		return nil, err
	}
	b.closer = closer
	cfg.Logger.Info("back button enabled", zap.Int("pin", cfg.Pin))
	return b, nil
}

func newButton(logger *zap.Logger) *Button {
	return &Button{presses: make(chan struct{}, 1), logger: logger}
}

// Presses receives once per press; presses arriving while one is pending
// are merged.
func (b *Button) Presses() <-chan struct{} {
	return b.presses
}

func (b *Button) press() {
	select {
	case b.presses <- struct{}{}:
	default:
		b.logger.Debug("back button press merged")
	}
}

func (b *Button) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	return err
}

//go:build linux && (arm || arm64)

package button

import (
	"os"
	"strings"
)

// boardModel reads the device-tree model string, e.g.
// "Raspberry Pi 5 Model B Rev 1.0". Empty if unknown.
func boardModel() string {
	paths := []string{
		"/sys/firmware/devicetree/base/model",
		"/proc/device-tree/model",
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return strings.Trim(strings.TrimSpace(string(b)), "\x00")
	}
	return ""
}

// chipOrder lists the gpiochip devices to probe for the header pins.
func chipOrder(model string) []string {
	// Pi 5 kernels may expose the header on gpiochip4.
	if strings.Contains(model, "Raspberry Pi 5") {
		return []string{"/dev/gpiochip4", "/dev/gpiochip0"}
	}
	return []string{"/dev/gpiochip0", "/dev/gpiochip4"}
}

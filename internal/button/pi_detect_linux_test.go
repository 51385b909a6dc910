//go:build linux && (arm || arm64)

package button

import "testing"

func TestChipOrder(t *testing.T) {
	if got := chipOrder("Raspberry Pi 5 Model B Rev 1.0")[0]; got != "/dev/gpiochip4" {
		t.Fatalf("pi5 first chip=%q want /dev/gpiochip4", got)
	}
	if got := chipOrder("Raspberry Pi 4 Model B Rev 1.4")[0]; got != "/dev/gpiochip0" {
		t.Fatalf("pi4 first chip=%q want /dev/gpiochip0", got)
	}
}

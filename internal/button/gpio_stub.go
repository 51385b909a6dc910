//go:build !linux || (!arm && !arm64)

package button

import (
	"fmt"
	"io"
)

// Stub implementation for non-Linux and/or non-ARM platforms.
func openLine(cfg Config, onPress func()) (io.Closer, error) {
	return nil, fmt.Errorf("button: gpio unsupported on this platform")
}

var openLineFn = openLine

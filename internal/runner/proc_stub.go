//go:build !linux

package runner

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// Stub implementation for non-Linux platforms: only the direct child is
// killed.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
}

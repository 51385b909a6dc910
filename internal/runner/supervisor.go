// Package runner supervises the child process launched from a menu leaf.
package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/creack/pty"
	"go.uber.org/zap"
)

// State is the lifecycle stage of a supervised process.
type State int32

const (
	Idle State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrAlreadySpawned = errors.New("runner: supervisor already spawned a process")
	ErrEmptyCommand   = errors.New("runner: empty command")
	ErrBusy           = errors.New("runner: another process is still running")
)

// SpawnError reports a child that could not be started.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	name := ""
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	return fmt.Sprintf("spawn %q: %v", name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Config controls how children are started and their output is read.
type Config struct {
	// PTY runs the child on a pseudo terminal so that it line-buffers its
	// output. Otherwise stdout and stderr share one pipe.
	PTY     bool
	Env     map[string]string
	WorkDir string

	// QueueLines bounds the lines buffered between reader and consumer.
	// If 0, defaults to 256.
	QueueLines int
	// MaxLineBytes truncates longer lines. If 0, defaults to 16 KiB.
	MaxLineBytes int
	// ExitGrace is how long output is still read after the child exited.
	// Processes of its group still holding the output are then killed.
	// If 0, defaults to 500ms.
	ExitGrace time.Duration

	Logger *zap.Logger
}

// Supervisor owns exactly one child process over its lifetime.
type Supervisor struct {
	cfg Config

	mu      sync.RWMutex
	state   State
	argv    []string
	pid     int
	stopped bool
	exitErr error
	cmd     *exec.Cmd
	out     *os.File

	// discarded is set when a finished run is released before its queue
	// was drained.
	discarded bool

	lines     chan string
	stopCh    chan struct{}
	done      chan struct{}
	forwarded atomic.Uint64
}

type Snapshot struct {
	Argv      []string
	State     State
	PID       int
	Stopped   bool
	ExitErr   error
	Forwarded uint64
}

// New returns an idle supervisor with defaults filled in.
func New(cfg Config) *Supervisor {
	if cfg.QueueLines <= 0 {
		cfg.QueueLines = 256
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 16 * 1024
	}
	if cfg.ExitGrace <= 0 {
		cfg.ExitGrace = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Supervisor{
		cfg:    cfg,
		state:  Idle,
		lines:  make(chan string, cfg.QueueLines),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Spawn starts argv with combined stdout/stderr capture and a reader
// goroutine. On failure the supervisor stays Idle.
func (s *Supervisor) Spawn(argv []string) error {
	if s == nil {
		return fmt.Errorf("supervisor is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrAlreadySpawned
	}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return &SpawnError{Argv: argv, Err: ErrEmptyCommand}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if s.cfg.WorkDir != "" {
		cmd.Dir = s.cfg.WorkDir
	}
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), envMapToList(s.cfg.Env)...)
	}

	var (
		out *os.File
		err error
	)
	if s.cfg.PTY {
		out, err = pty.Start(cmd)
	} else {
		out, err = startPiped(cmd)
	}
	if err != nil {
		s.cfg.Logger.Warn("spawn failed", zap.Strings("argv", argv), zap.Error(err))
		return &SpawnError{Argv: append([]string(nil), argv...), Err: err}
	}

	s.cmd = cmd
	s.out = out
	s.argv = append([]string(nil), argv...)
	s.pid = cmd.Process.Pid
	s.state = Running
	s.cfg.Logger.Info("process started",
		zap.Strings("argv", s.argv),
		zap.Int("pid", s.pid),
		zap.Bool("pty", s.cfg.PTY),
	)

	go s.readLoop(cmd, out)
	return nil
}

func startPiped(cmd *exec.Cmd) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	// The child holds its own copy; EOF arrives once every writer is gone.
	_ = w.Close()
	return r, nil
}

func (s *Supervisor) readLoop(cmd *exec.Cmd, out *os.File) {
	defer close(s.done)
	defer close(s.lines)

	readDone := make(chan error, 1)
	go func() {
		readDone <- readLines(out, s.cfg.MaxLineBytes, s.forward)
	}()

	// The child is the session: its exit ends the run even while a
	// background descendant still holds the output open.
	waitErr := cmd.Wait()

	s.mu.Lock()
	stopped := s.stopped
	if !stopped {
		s.exitErr = waitErr
	}
	s.state = Terminated
	s.mu.Unlock()

	var readErr error
	grace := time.NewTimer(s.cfg.ExitGrace)
	select {
	case readErr = <-readDone:
		grace.Stop()
	case <-grace.C:
		if err := killProcessGroup(cmd.Process); err != nil {
			s.cfg.Logger.Warn("kill of leftover processes failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		}
		_ = out.Close()
		readErr = <-readDone
		s.cfg.Logger.Info("output closed after exit", zap.Int("pid", cmd.Process.Pid), zap.Duration("grace", s.cfg.ExitGrace))
	}
	_ = out.Close()

	if readErr != nil && !isEndOfStream(readErr) && !stopped {
		s.cfg.Logger.Warn("output read failed", zap.Int("pid", cmd.Process.Pid), zap.Error(readErr))
	}
	s.cfg.Logger.Info("process ended",
		zap.Int("pid", cmd.Process.Pid),
		zap.Bool("stopped", stopped),
		zap.NamedError("exit", waitErr),
		zap.Uint64("lines", s.forwarded.Load()),
	)
}

// forward hands one line to the consumer unless the run was stopped.
func (s *Supervisor) forward(line string) bool {
	select {
	case <-s.stopCh:
		return false
	default:
	}
	select {
	case s.lines <- line:
		s.forwarded.Add(1)
		return true
	case <-s.stopCh:
		return false
	}
}

// readLines calls emit for every line of r until end of stream or until emit
// returns false. Lines longer than maxLineBytes are truncated; the remainder
// is skipped so the child never blocks on a full pipe.
func readLines(r io.Reader, maxLineBytes int, emit func(string) bool) error {
	br := bufio.NewReaderSize(r, 4096)
	buf := make([]byte, 0, 256)
	full := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !full {
			if room := maxLineBytes - len(buf); len(chunk) > room {
				// Cut on a rune boundary; the rest of the line is skipped.
				for room > 0 && !utf8.RuneStart(chunk[room]) {
					room--
				}
				chunk = chunk[:room]
				full = true
			}
			buf = append(buf, chunk...)
		}

		switch {
		case err == nil:
			if !emit(strings.TrimRight(string(buf), "\r\n")) {
				return nil
			}
			buf = buf[:0]
			full = false
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			if len(buf) > 0 {
				emit(strings.TrimRight(string(buf), "\r\n"))
			}
			return err
		}
	}
}

// Next returns the next line in the order the child produced it. It reports
// false at end of stream and after Stop, even if lines are still buffered.
func (s *Supervisor) Next() (string, bool) {
	if s.State() == Idle {
		return "", false
	}
	select {
	case <-s.stopCh:
		return "", false
	default:
	}
	select {
	case line, ok := <-s.lines:
		if !ok {
			return "", false
		}
		select {
		case <-s.stopCh:
			return "", false
		default:
		}
		return line, true
	case <-s.stopCh:
		return "", false
	}
}

// Stop kills the child and its process group. After a natural exit it only
// discards output that is still queued.
func (s *Supervisor) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.state == Terminated && !s.stopped && !s.discarded {
		s.discarded = true
		s.mu.Unlock()
		close(s.stopCh)
		return
	}
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Terminated
	s.stopped = true
	cmd, out := s.cmd, s.out
	s.mu.Unlock()

	close(s.stopCh)
	if err := killProcessGroup(cmd.Process); err != nil {
		s.cfg.Logger.Warn("kill failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
	}
	_ = out.Close()
	s.cfg.Logger.Info("process stopped", zap.Int("pid", cmd.Process.Pid))
}

// Join waits until the reader has seen end of stream and the child has been
// reaped. It returns immediately if nothing was spawned.
func (s *Supervisor) Join() {
	if s == nil {
		return
	}
	s.mu.RLock()
	spawned := s.cmd != nil
	s.mu.RUnlock()
	if !spawned {
		return
	}
	<-s.done
}

// Done is closed once Join would return.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) State() State {
	if s == nil {
		return Idle
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Argv:      append([]string(nil), s.argv...),
		State:     s.state,
		PID:       s.pid,
		Stopped:   s.stopped,
		ExitErr:   s.exitErr,
		Forwarded: s.forwarded.Load(),
	}
}

func envMapToList(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

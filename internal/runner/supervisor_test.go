package runner

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(t *testing.T, s *Supervisor) []string {
	t.Helper()
	var out []string
	deadline := time.After(10 * time.Second)
	got := make(chan []string, 1)
	go func() {
		var lines []string
		for {
			line, ok := s.Next()
			if !ok {
				break
			}
			lines = append(lines, line)
		}
		got <- lines
	}()
	select {
	case out = <-got:
	case <-deadline:
		t.Fatalf("timed out draining output")
	}
	return out
}

func waitDone(t *testing.T, s *Supervisor) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("reader did not finish")
	}
}

func TestSupervisor_NaturalExit(t *testing.T) {
	s := New(Config{})
	if s.State() != Idle {
		t.Fatalf("state=%s want idle", s.State())
	}
	if err := s.Spawn([]string{"/bin/sh", "-c", "echo one; echo two >&2; printf three"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if s.State() != Running && s.State() != Terminated {
		t.Fatalf("state=%s after spawn", s.State())
	}
	if s.Snapshot().PID == 0 {
		t.Fatalf("expected pid")
	}

	lines := drain(t, s)
	s.Join()

	want := []string{"one", "two", "three"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines=%q want %q", lines, want)
	}
	if s.State() != Terminated {
		t.Fatalf("state=%s want terminated", s.State())
	}
	if snap := s.Snapshot(); snap.ExitErr != nil || snap.Stopped || snap.Forwarded != 3 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("no lines after end of stream")
	}
}

func TestSupervisor_ExitStatusRecorded(t *testing.T) {
	s := New(Config{})
	if err := s.Spawn([]string{"/bin/sh", "-c", "exit 3"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	drain(t, s)
	s.Join()
	if s.Snapshot().ExitErr == nil {
		t.Fatalf("expected exit error")
	}
}

func TestSupervisor_SpawnFailureStaysIdle(t *testing.T) {
	s := New(Config{})
	err := s.Spawn([]string{"/nonexistent/pimenu-test-binary"})
	var se *SpawnError
	if !errors.As(err, &se) {
		t.Fatalf("err=%v want *SpawnError", err)
	}
	if s.State() != Idle {
		t.Fatalf("state=%s want idle", s.State())
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("Next on idle supervisor must report false")
	}
	s.Join()
	s.Stop()
}

func TestSupervisor_EmptyCommand(t *testing.T) {
	s := New(Config{})
	err := s.Spawn(nil)
	if !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("err=%v want ErrEmptyCommand", err)
	}
}

func TestSupervisor_SingleUse(t *testing.T) {
	s := New(Config{})
	if err := s.Spawn([]string{"/bin/sh", "-c", "true"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := s.Spawn([]string{"/bin/sh", "-c", "true"}); !errors.Is(err, ErrAlreadySpawned) {
		t.Fatalf("second Spawn err=%v want ErrAlreadySpawned", err)
	}
	drain(t, s)
	s.Join()
}

func TestSupervisor_StopKillsAndDropsLaterOutput(t *testing.T) {
	s := New(Config{})
	script := "echo ready; sleep 0.3; echo late; sleep 30"
	if err := s.Spawn([]string{"/bin/sh", "-c", script}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	line, ok := s.Next()
	if !ok || line != "ready" {
		t.Fatalf("first line=%q ok=%v", line, ok)
	}

	start := time.Now()
	s.Stop()
	if s.State() != Terminated {
		t.Fatalf("state=%s want terminated", s.State())
	}
	if _, ok := s.Next(); ok {
		t.Fatalf("no lines may be delivered after Stop")
	}
	waitDone(t, s)
	if time.Since(start) > 5*time.Second {
		t.Fatalf("stop was not prompt")
	}
	snap := s.Snapshot()
	if !snap.Stopped || snap.ExitErr != nil {
		t.Fatalf("snapshot=%+v", snap)
	}

	// Idempotent.
	s.Stop()
	s.Join()
}

func TestSupervisor_StopDiscardsBufferedLines(t *testing.T) {
	s := New(Config{QueueLines: 4})
	if err := s.Spawn([]string{"/bin/sh", "-c", "for i in 1 2 3 4 5 6 7 8; do echo $i; done; sleep 30"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	// Let the reader fill the queue.
	deadline := time.Now().Add(5 * time.Second)
	for s.Snapshot().Forwarded < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()
	if line, ok := s.Next(); ok {
		t.Fatalf("buffered line %q delivered after Stop", line)
	}
	s.Join()
}

func TestSupervisor_StopAfterExitIsNoop(t *testing.T) {
	s := New(Config{})
	if err := s.Spawn([]string{"/bin/sh", "-c", "echo done"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	drain(t, s)
	s.Join()
	s.Stop()
	if s.Snapshot().Stopped {
		t.Fatalf("Stop after natural exit must not mark the run as stopped")
	}
}

func TestSupervisor_ExitWhileDescendantHoldsOutput(t *testing.T) {
	s := New(Config{ExitGrace: 200 * time.Millisecond})
	start := time.Now()
	if err := s.Spawn([]string{"/bin/sh", "-c", "sleep 3 & echo hi"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	for s.State() != Terminated {
		if time.Since(start) > 2*time.Second {
			t.Fatalf("state=%s after the shell exited", s.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	lines := drain(t, s)
	waitDone(t, s)
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Fatalf("reader finished after %v, background sleep kept it open", elapsed)
	}
	if len(lines) != 1 || lines[0] != "hi" {
		t.Fatalf("lines=%q want [hi]", lines)
	}
	if snap := s.Snapshot(); snap.Stopped || snap.ExitErr != nil {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestSupervisor_StopAfterExitDiscardsQueue(t *testing.T) {
	s := New(Config{QueueLines: 1})
	if err := s.Spawn([]string{"/bin/sh", "-c", "for i in 1 2 3 4 5 6 7 8; do echo $i; done"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.State() != Terminated {
		if time.Now().After(deadline) {
			t.Fatalf("state=%s want terminated", s.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Stop()
	waitDone(t, s)
	if _, ok := s.Next(); ok {
		t.Fatalf("queued lines must be discarded")
	}
	if s.Snapshot().Stopped {
		t.Fatalf("a discarded queue must not mark the run as stopped")
	}
	s.Stop()
}

func TestSupervisor_EnvAndWorkDir(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Env: map[string]string{"PIMENU_TEST": "yes", " ": "ignored"}, WorkDir: dir})
	if err := s.Spawn([]string{"/bin/sh", "-c", "echo $PIMENU_TEST; pwd"}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	lines := drain(t, s)
	s.Join()
	if len(lines) != 2 || lines[0] != "yes" || !strings.HasSuffix(lines[1], dirBase(dir)) {
		t.Fatalf("lines=%q", lines)
	}
}

func dirBase(p string) string {
	i := strings.LastIndexByte(p, '/')
	return p[i+1:]
}

func TestSupervisor_PTY(t *testing.T) {
	s := New(Config{PTY: true})
	if err := s.Spawn([]string{"/bin/sh", "-c", "echo hello"}); err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	lines := drain(t, s)
	s.Join()
	if len(lines) == 0 || lines[0] != "hello" {
		t.Fatalf("lines=%q want hello", lines)
	}
}

func TestReadLines_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 10000)
	r := strings.NewReader(long + "\nshort\r\ntail")
	var got []string
	err := readLines(r, 16, func(s string) bool {
		got = append(got, s)
		return true
	})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	want := []string{strings.Repeat("x", 16), "short", "tail"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines=%q want %q", got, want)
	}
}

func TestReadLines_TruncatesOnRuneBoundary(t *testing.T) {
	r := strings.NewReader("€€€\n" + strings.Repeat("ü", 5000) + "\nok\n")
	var got []string
	err := readLines(r, 4, func(s string) bool {
		got = append(got, s)
		return true
	})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
	want := []string{"€", "üü", "ok"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines=%q want %q", got, want)
	}
}

func TestReadLines_StopsWhenEmitDeclines(t *testing.T) {
	r := strings.NewReader("a\nb\nc\n")
	n := 0
	err := readLines(r, 1024, func(string) bool {
		n++
		return false
	})
	if err != nil || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestState_String(t *testing.T) {
	if Idle.String() != "idle" || Running.String() != "running" || Terminated.String() != "terminated" {
		t.Fatalf("unexpected state names")
	}
}

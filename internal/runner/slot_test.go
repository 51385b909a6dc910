package runner

import (
	"errors"
	"testing"
	"time"
)

func TestSlot_RejectsSecondLaunchWhileRunning(t *testing.T) {
	sl := NewSlot(Config{})
	first, err := sl.Launch([]string{"/bin/sh", "-c", "sleep 30"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if _, err := sl.Launch([]string{"/bin/sh", "-c", "true"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("err=%v want ErrBusy", err)
	}
	if sl.Current() != first {
		t.Fatalf("current should still be the first supervisor")
	}

	sl.Release()
	first.Join()
	if first.State() != Terminated {
		t.Fatalf("state=%s want terminated", first.State())
	}
	if sl.Current() != nil {
		t.Fatalf("slot should be empty after Release")
	}

	second, err := sl.Launch([]string{"/bin/sh", "-c", "echo again"})
	if err != nil {
		t.Fatalf("Launch after release: %v", err)
	}
	drain(t, second)
	second.Join()
}

func TestSlot_FailedLaunchKeepsSlotFree(t *testing.T) {
	sl := NewSlot(Config{})
	if _, err := sl.Launch([]string{"/nonexistent/pimenu-test-binary"}); err == nil {
		t.Fatalf("expected spawn error")
	}
	if sl.Current() != nil {
		t.Fatalf("failed launch must not occupy the slot")
	}
	sl.Release()
}

func TestSlot_LaunchAfterExitWithBackgroundChild(t *testing.T) {
	sl := NewSlot(Config{ExitGrace: 200 * time.Millisecond})
	first, err := sl.Launch([]string{"/bin/sh", "-c", "sleep 3 & echo started"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for first.State() == Running {
		if time.Now().After(deadline) {
			t.Fatalf("first run still running after the shell exited")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second, err := sl.Launch([]string{"/bin/sh", "-c", "echo next"})
	if err != nil {
		t.Fatalf("Launch after exit: %v", err)
	}
	first.Join()
	if first.Snapshot().Stopped {
		t.Fatalf("replacing a finished run must not mark it as stopped")
	}
	if lines := drain(t, second); len(lines) != 1 || lines[0] != "next" {
		t.Fatalf("lines=%q want [next]", lines)
	}
	second.Join()
	sl.Release()
}

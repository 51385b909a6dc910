package runner

import "sync"

// Slot holds the single active supervisor of a launcher and refuses a second
// launch while one is running.
type Slot struct {
	mu  sync.Mutex
	cfg Config
	cur *Supervisor
}

func NewSlot(cfg Config) *Slot {
	return &Slot{cfg: cfg}
}

// Launch spawns argv on a fresh supervisor.
func (sl *Slot) Launch(argv []string) (*Supervisor, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.cur != nil && sl.cur.State() == Running {
		return nil, ErrBusy
	}
	// A finished run may still hold queued output nobody will read.
	sl.cur.Stop()
	sup := New(sl.cfg)
	if err := sup.Spawn(argv); err != nil {
		return nil, err
	}
	sl.cur = sup
	return sup, nil
}

// Current returns the last launched supervisor, if any.
func (sl *Slot) Current() *Supervisor {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.cur
}

// Release stops the current supervisor and empties the slot.
func (sl *Slot) Release() {
	sl.mu.Lock()
	cur := sl.cur
	sl.cur = nil
	sl.mu.Unlock()
	cur.Stop()
}

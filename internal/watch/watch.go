// Package watch signals edits of the menu file so the UI can tell the user
// (or reload right away when nothing is open).
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var ErrAlreadyStarted = errors.New("watch: already started")

type Config struct {
	Path         string
	Debounce     time.Duration
	PollInterval time.Duration
	// ForcePoll skips fsnotify, e.g. for network mounts.
	ForcePoll bool
	Logger    *zap.Logger
}

// Watcher monitors one file using fsnotify with a polling fallback.
type Watcher struct {
	cfg Config

	mu        sync.Mutex
	started   bool
	polling   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	fsw       *fsnotify.Watcher
	timer     *time.Timer
	lastMtime time.Time
	lastSize  int64

	changeCh chan struct{}
}

func New(cfg Config) (*Watcher, error) {
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Watcher{cfg: cfg, changeCh: make(chan struct{}, 1)}, nil
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	if info, err := os.Stat(w.cfg.Path); err == nil {
		w.lastMtime = info.ModTime()
		w.lastSize = info.Size()
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.polling = w.cfg.ForcePoll

	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory: editors replace files atomically.
			if err := fsw.Add(filepath.Dir(w.cfg.Path)); err != nil {
				_ = fsw.Close()
				w.polling = true
			} else {
				w.fsw = fsw
			}
		} else {
			w.polling = true
		}
	}

	w.wg.Add(1)
	if w.polling {
		go w.watchPolling(runCtx)
	} else {
		go w.watchFsnotify(runCtx, w.fsw)
	}
	w.started = true
	w.cfg.Logger.Info("menu watch started", zap.String("path", w.cfg.Path), zap.Bool("polling", w.polling))
	return nil
}

// Stop ends watching and waits for the watch goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	cancel := w.cancel
	fsw := w.fsw
	w.fsw = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	cancel()
	if fsw != nil {
		_ = fsw.Close()
	}
	w.wg.Wait()
}

// Changed receives after each debounced change. Bursts coalesce into one
// pending notification.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

func (w *Watcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	target := filepath.Base(w.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.cfg.Logger.Warn("menu watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	defer w.wg.Done()
	t := time.NewTicker(w.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		info, err := os.Stat(w.cfg.Path)
		w.mu.Lock()
		changed := false
		if err != nil {
			changed = !w.lastMtime.IsZero()
			w.lastMtime, w.lastSize = time.Time{}, 0
		} else if !info.ModTime().Equal(w.lastMtime) || info.Size() != w.lastSize {
			changed = true
			w.lastMtime, w.lastSize = info.ModTime(), info.Size()
		}
		w.mu.Unlock()
		if changed {
			w.trigger()
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}

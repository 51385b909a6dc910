// Package output holds the scrollback of the running action and routes GPS
// sentences to the telemetry filter.
package output

import (
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"pimenu-ng/internal/gps"
)

// DefaultMarker identifies a GPS fix sentence ($GPGGA, $GNGGA, ...).
const DefaultMarker = "GGA,"

type Config struct {
	MaxLines     int
	MaxLineBytes int
	// Marker is the substring that routes a line to the filter.
	Marker string
	Logger *zap.Logger
}

// Sink is an append-only line buffer with tail-follow.
//
// Routing is a plain substring test: a non-GPS line that happens to contain
// the marker is sent to the filter, fails to parse and is dropped.
type Sink struct {
	mu           sync.Mutex
	maxLines     int
	maxLineBytes int
	marker       string
	logger       *zap.Logger

	lines      []string
	dropped    uint64
	autoScroll bool
	version    uint64

	filter    *gps.Filter
	routed    uint64
	misrouted uint64
}

func New(cfg Config) *Sink {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 2000
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 16 * 1024
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sink{
		maxLines:     cfg.MaxLines,
		maxLineBytes: cfg.MaxLineBytes,
		marker:       cfg.Marker,
		logger:       cfg.Logger,
		lines:        make([]string, 0, 64),
		autoScroll:   true,
	}
}

// Attach binds a telemetry filter for this session. A nil filter detaches.
func (s *Sink) Attach(f *gps.Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Append consumes one line of child output.
func (s *Sink) Append(line string) {
	line = strings.TrimRight(line, "\r\n")

	s.mu.Lock()
	f := s.filter
	if f != nil && strings.Contains(line, s.marker) {
		s.routed++
		s.mu.Unlock()
		s.route(f, line)
		return
	}
	s.appendLocked(line)
	s.mu.Unlock()
}

func (s *Sink) route(f *gps.Filter, line string) {
	fix, err := gps.ParseFix(line)
	if err != nil {
		s.mu.Lock()
		s.misrouted++
		s.mu.Unlock()
		s.logger.Debug("telemetry line discarded", zap.String("line", line), zap.Error(err))
		return
	}
	f.Consume(fix)
}

func (s *Sink) appendLocked(line string) {
	line = truncate(line, s.maxLineBytes)
	if len(s.lines) < s.maxLines {
		s.lines = append(s.lines, line)
	} else {
		copy(s.lines, s.lines[1:])
		s.lines[len(s.lines)-1] = line
		s.dropped++
	}
	s.version++
}

// Lines returns a copy of the scrollback.
func (s *Sink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.lines))
	return append(out, s.lines...)
}

// String joins the scrollback with newlines.
func (s *Sink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

// Version increases on every plain line stored.
func (s *Sink) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dropped counts lines evicted from the scrollback.
func (s *Sink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Routed counts lines handed to the filter; Misrouted those that failed to
// decode there.
func (s *Sink) Routed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routed
}

func (s *Sink) Misrouted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.misrouted
}

func (s *Sink) AutoScroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoScroll
}

// SetAutoScroll toggles tail-follow.
func (s *Sink) SetAutoScroll(on bool) {
	s.mu.Lock()
	s.autoScroll = on
	s.mu.Unlock()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

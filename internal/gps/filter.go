package gps

import (
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval throttles marker updates with an unchanged quality.
const DefaultRefreshInterval = 1 * time.Second

// MarkerID identifies a marker placed by a MarkerController.
type MarkerID int

// MarkerController renders markers on a map view.
type MarkerController interface {
	Place(lat, lon float64, color string) MarkerID
	Release(id MarkerID)
	Center(lat, lon float64)
}

// TitleSetter receives the fix-quality label of accepted updates.
type TitleSetter interface {
	SetTitle(title string)
}

type FilterConfig struct {
	Interval time.Duration
	Markers  MarkerController
	// Title is optional.
	Title  TitleSetter
	Now    func() time.Time
	Logger *zap.Logger
}

// State is the filter's view of the track so far.
type State struct {
	LastEmit       time.Time
	LastQuality    int
	Primary        MarkerID
	HasPrimary     bool
	Trailing       MarkerID
	HasTrailing    bool
	Accepted       uint64
	DroppedInvalid uint64
	Throttled      uint64
}

// Filter throttles fix records into marker updates. A change of fix quality
// bypasses the throttle. It is not safe for concurrent use; it is driven
// from the UI loop.
type Filter struct {
	cfg FilterConfig
	st  State
	any bool
}

// NewFilter returns a filter with defaults filled in.
func NewFilter(cfg FilterConfig) *Filter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Filter{cfg: cfg}
}

// Consume handles one fix and reports whether it produced a marker update.
func (f *Filter) Consume(fix Fix) bool {
	if !fix.Valid {
		f.st.DroppedInvalid++
		return false
	}
	now := f.cfg.Now()
	if f.any {
		elapsed := now.Sub(f.st.LastEmit)
		if elapsed <= f.cfg.Interval && fix.Quality == f.st.LastQuality {
			f.st.Throttled++
			return false
		}
	}

	style, labeled := Quality(fix.Quality)
	if labeled && f.cfg.Title != nil {
		f.cfg.Title.SetTitle(style.Label)
	}

	if f.cfg.Markers != nil {
		// The origin marker stays for the whole track, so it is never released
		// as the trailing marker.
		if f.st.HasTrailing && !(f.st.HasPrimary && f.st.Trailing == f.st.Primary) {
			f.cfg.Markers.Release(f.st.Trailing)
		}
		id := f.cfg.Markers.Place(fix.Lat, fix.Lon, style.Color)
		f.st.Trailing, f.st.HasTrailing = id, true
		if !f.st.HasPrimary {
			f.st.Primary, f.st.HasPrimary = id, true
		}
		f.cfg.Markers.Center(fix.Lat, fix.Lon)
	}

	if f.any && fix.Quality != f.st.LastQuality {
		f.cfg.Logger.Info("gps fix quality changed",
			zap.Int("from", f.st.LastQuality),
			zap.Int("to", fix.Quality),
			zap.String("label", style.Label),
		)
	}
	f.any = true
	f.st.LastEmit = now
	f.st.LastQuality = fix.Quality
	f.st.Accepted++
	return true
}

func (f *Filter) State() State {
	return f.st
}

package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarkers struct {
	next     MarkerID
	live     map[MarkerID][2]float64
	colors   map[MarkerID]string
	released []MarkerID
	center   [2]float64
	centers  int
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{live: map[MarkerID][2]float64{}, colors: map[MarkerID]string{}}
}

func (m *fakeMarkers) Place(lat, lon float64, color string) MarkerID {
	m.next++
	m.live[m.next] = [2]float64{lat, lon}
	m.colors[m.next] = color
	return m.next
}

func (m *fakeMarkers) Release(id MarkerID) {
	delete(m.live, id)
	m.released = append(m.released, id)
}

func (m *fakeMarkers) Center(lat, lon float64) {
	m.center = [2]float64{lat, lon}
	m.centers++
}

type fakeTitle struct{ titles []string }

func (f *fakeTitle) SetTitle(s string) { f.titles = append(f.titles, s) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFilter(t *testing.T) (*Filter, *fakeMarkers, *fakeTitle, *clock) {
	t.Helper()
	m := newFakeMarkers()
	title := &fakeTitle{}
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f := NewFilter(FilterConfig{Interval: time.Second, Markers: m, Title: title, Now: c.now})
	return f, m, title, c
}

func fixAt(lat, lon float64, q int) Fix {
	return Fix{Valid: true, Lat: lat, Lon: lon, Quality: q}
}

func TestFilter_SameQualityWithinIntervalIsThrottled(t *testing.T) {
	f, m, _, c := newTestFilter(t)

	require.True(t, f.Consume(fixAt(1, 1, 1)))
	c.advance(500 * time.Millisecond)
	assert.False(t, f.Consume(fixAt(1.1, 1.1, 1)))

	st := f.State()
	assert.Equal(t, uint64(1), st.Accepted)
	assert.Equal(t, uint64(1), st.Throttled)
	assert.Equal(t, 1, m.centers)
}

func TestFilter_QualityChangeBypassesThrottle(t *testing.T) {
	f, _, title, c := newTestFilter(t)

	require.True(t, f.Consume(fixAt(1, 1, QualityRTKFloat)))
	c.advance(100 * time.Millisecond)
	require.True(t, f.Consume(fixAt(1, 1, QualityRTKFixed)))

	assert.Equal(t, []string{"RTK float", "RTK fixed"}, title.titles)
	assert.Equal(t, QualityRTKFixed, f.State().LastQuality)
}

func TestFilter_AcceptsAfterInterval(t *testing.T) {
	f, _, _, c := newTestFilter(t)

	require.True(t, f.Consume(fixAt(1, 1, 1)))
	c.advance(time.Second)
	assert.False(t, f.Consume(fixAt(1, 1, 1)), "elapsed must exceed the interval")
	c.advance(time.Millisecond)
	assert.True(t, f.Consume(fixAt(1, 1, 1)))
}

func TestFilter_InvalidDiscarded(t *testing.T) {
	f, m, title, _ := newTestFilter(t)

	assert.False(t, f.Consume(Fix{Valid: false, Quality: 4}))
	assert.Equal(t, uint64(1), f.State().DroppedInvalid)
	assert.Empty(t, m.live)
	assert.Empty(t, title.titles)

	// An invalid record must not arm the throttle.
	assert.True(t, f.Consume(fixAt(1, 1, 4)))
}

func TestFilter_PrimaryKeptTrailingReplaced(t *testing.T) {
	f, m, _, c := newTestFilter(t)

	require.True(t, f.Consume(fixAt(10, 20, 1)))
	st := f.State()
	require.True(t, st.HasPrimary)
	assert.Equal(t, st.Primary, st.Trailing, "first marker is both origin and current")

	c.advance(2 * time.Second)
	require.True(t, f.Consume(fixAt(11, 21, 1)))
	st2 := f.State()
	assert.Equal(t, st.Primary, st2.Primary)
	assert.NotEqual(t, st2.Primary, st2.Trailing)
	assert.Empty(t, m.released, "origin must not be released")

	c.advance(2 * time.Second)
	require.True(t, f.Consume(fixAt(12, 22, 1)))
	st3 := f.State()
	assert.Equal(t, []MarkerID{st2.Trailing}, m.released)
	assert.Len(t, m.live, 2)
	assert.Contains(t, m.live, st3.Primary)
	assert.Contains(t, m.live, st3.Trailing)
	assert.Equal(t, [2]float64{12, 22}, m.center)
}

func TestFilter_UnmappedQualityKeepsTitleAndDefaultColor(t *testing.T) {
	f, m, title, _ := newTestFilter(t)

	require.True(t, f.Consume(fixAt(1, 1, 3)))
	assert.Empty(t, title.titles)
	assert.Equal(t, DefaultMarkerColor, m.colors[f.State().Trailing])
}

func TestFilter_WithoutMarkersStillThrottles(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	f := NewFilter(FilterConfig{Now: c.now})

	assert.True(t, f.Consume(fixAt(1, 1, 1)))
	c.advance(10 * time.Millisecond)
	assert.False(t, f.Consume(fixAt(1, 1, 1)))
	assert.False(t, f.State().HasPrimary)
}

package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pimenu-ng/internal/gps"
)

type marker struct {
	lat, lon float64
	color    string
}

// mapPanel is a text map: it keeps the placed markers and renders the origin,
// the current position and the distance between them.
type mapPanel struct {
	next     gps.MarkerID
	markers  map[gps.MarkerID]marker
	center   marker
	centered bool
}

func newMapPanel() *mapPanel {
	return &mapPanel{markers: make(map[gps.MarkerID]marker)}
}

func (p *mapPanel) Place(lat, lon float64, color string) gps.MarkerID {
	p.next++
	p.markers[p.next] = marker{lat: lat, lon: lon, color: color}
	return p.next
}

func (p *mapPanel) Release(id gps.MarkerID) {
	delete(p.markers, id)
}

func (p *mapPanel) Center(lat, lon float64) {
	p.center = marker{lat: lat, lon: lon}
	p.centered = true
}

func (p *mapPanel) view(width, height int, st gps.State) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("MAP"))
	b.WriteString("\n")
	if !p.centered {
		b.WriteString("waiting for fix")
		return mapStyle.Width(width - 1).Height(height).Render(b.String())
	}

	dot := func(m marker) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(m.color)).Render("●")
	}
	origin, hasOrigin := p.markers[st.Primary]
	current, hasCurrent := p.markers[st.Trailing]
	if st.HasPrimary && hasOrigin {
		fmt.Fprintf(&b, "%s origin  %s\n", dot(origin), formatLatLon(origin.lat, origin.lon))
	}
	if st.HasTrailing && hasCurrent {
		fmt.Fprintf(&b, "%s current %s\n", dot(current), formatLatLon(current.lat, current.lon))
	}
	if hasOrigin && hasCurrent {
		fmt.Fprintf(&b, "  offset  %s\n", formatDistance(distanceMeters(origin.lat, origin.lon, current.lat, current.lon)))
	}
	fmt.Fprintf(&b, "  center  %s\n", formatLatLon(p.center.lat, p.center.lon))
	fmt.Fprintf(&b, "  fixes   %d shown, %d throttled, %d invalid\n", st.Accepted, st.Throttled, st.DroppedInvalid)
	if q, ok := gps.Quality(st.LastQuality); ok {
		fmt.Fprintf(&b, "  quality %s\n", q.Label)
	}
	return mapStyle.Width(width - 1).Height(height).Render(b.String())
}

func formatLatLon(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}

func formatDistance(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.2f km", m/1000)
	}
	return fmt.Sprintf("%.1f m", m)
}

const earthRadiusMeters = 6371000.0

// distanceMeters is the haversine great-circle distance.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

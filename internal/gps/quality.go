package gps

// Fix quality codes as reported in GGA field 6.
const (
	QualitySinglePoint   = 1
	QualityDifferential  = 2
	QualityRTKFixed      = 4
	QualityRTKFloat      = 5
	QualityDeadReckoning = 6
)

// DefaultMarkerColor is used for codes without a table entry.
const DefaultMarkerColor = "#2b5797"

// Style is the label and marker color shown for a fix quality.
type Style struct {
	Color string
	Label string
}

var qualityStyles = map[int]Style{
	QualitySinglePoint:   {Color: "#b91d47", Label: "GPS"},
	QualityDifferential:  {Color: "#e3a21a", Label: "DGPS"},
	QualityRTKFixed:      {Color: "#00a300", Label: "RTK fixed"},
	QualityRTKFloat:      {Color: "#99b433", Label: "RTK float"},
	QualityDeadReckoning: {Color: "#7e3878", Label: "Dead reckoning"},
}

// Quality maps a fix quality code to its marker style. Unmapped codes return
// the default color, no label and ok=false.
func Quality(code int) (Style, bool) {
	s, ok := qualityStyles[code]
	if !ok {
		return Style{Color: DefaultMarkerColor}, false
	}
	return s, true
}

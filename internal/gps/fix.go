package gps

import (
	"fmt"
	"strconv"
	"strings"
)

// Fix is one decoded position report.
type Fix struct {
	Valid   bool
	Lat     float64
	Lon     float64
	Quality int
}

// ParseFix decodes a GGA sentence.
//
// GGA fields:
//
//	0: talker+type
//	1: time
//	2: latitude
//	3: N/S
//	4: longitude
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
//
// A sentence that decodes but reports quality 0 or lacks coordinates yields
// a Fix with Valid=false and a nil error.
func ParseFix(line string) (Fix, error) {
	sent, err := parseNMEASentence(line)
	if err != nil {
		return Fix{}, err
	}
	if sent.Type != "GGA" {
		return Fix{}, fmt.Errorf("nmea: unexpected sentence %s", sent.Type)
	}
	f := sent.Fields
	if len(f) < 7 {
		return Fix{}, fmt.Errorf("nmea: short GGA (%d fields)", len(f))
	}

	var fix Fix
	if qs := strings.TrimSpace(f[6]); qs != "" {
		q, err := strconv.Atoi(qs)
		if err != nil {
			return Fix{}, fmt.Errorf("nmea: bad fix quality %q", qs)
		}
		fix.Quality = q
	}
	lat, latOK := parseNMEALatLon(f[2], f[3])
	lon, lonOK := parseNMEALatLon(f[4], f[5])
	fix.Lat, fix.Lon = lat, lon
	fix.Valid = fix.Quality > 0 && latOK && lonOK
	return fix, nil
}

package gps

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

type nmeaSentence struct {
	Type string
	// Fields is the comma-split NMEA payload (excluding $ and checksum).
	Fields []string
}

// parseNMEASentence decodes one sentence. Leading chatter before '$' is
// skipped; the checksum is verified when the sentence carries one.
func parseNMEASentence(line string) (nmeaSentence, error) {
	line = strings.TrimSpace(line)
	start := strings.IndexByte(line, '$')
	if start == -1 {
		return nmeaSentence{}, fmt.Errorf("nmea: missing '$'")
	}
	line = line[start:]

	payload := line[1:]
	if star := strings.LastIndexByte(line, '*'); star != -1 {
		payload = line[1:star]
		ck := strings.TrimSpace(line[star+1:])
		if len(ck) < 2 {
			return nmeaSentence{}, fmt.Errorf("nmea: short checksum")
		}
		want, err := hex.DecodeString(ck[:2])
		if err != nil || len(want) != 1 {
			return nmeaSentence{}, fmt.Errorf("nmea: bad checksum")
		}
		got := byte(0)
		for i := 0; i < len(payload); i++ {
			got ^= payload[i]
		}
		if got != want[0] {
			return nmeaSentence{}, fmt.Errorf("nmea: checksum mismatch")
		}
	}

	parts := strings.Split(payload, ",")
	typeField := parts[0]
	if len(typeField) < 3 {
		return nmeaSentence{}, fmt.Errorf("nmea: short type")
	}
	// Accept GNxxx/GPxxx, etc; normalize to last 3 chars.
	t := typeField
	if len(t) > 3 {
		t = t[len(t)-3:]
	}
	return nmeaSentence{Type: strings.ToUpper(t), Fields: parts}, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseNMEALatLon parses NMEA lat/lon in ddmm.mmmm or dddmm.mmmm plus hemisphere.
func parseNMEALatLon(v string, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	hemi = strings.TrimSpace(strings.ToUpper(hemi))
	if v == "" || (hemi != "N" && hemi != "S" && hemi != "E" && hemi != "W") {
		return 0, false
	}

	// The last two digits of the integer part are minutes.
	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		return 0, false
	}

	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}

	dec := float64(deg) + (mins / 60.0)
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return dec, true
}

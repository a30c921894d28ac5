package table

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber coerces a cell to a float. Thousands separators and a comma
// decimal separator are detected per value ("1.234,5", "1,234.5", "12,5",
// "1,234,567").
// Empty, non-numeric and non-finite values report false.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		dec = ','
	case cpos >= 0 && dpos < 0 && strings.Count(raw, ",") == 1:
		// A lone comma is a decimal mark ("59,999" is 59.999); repeated
		// commas can only be thousands groups.
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Truth is a three-valued boolean.
type Truth int

const (
	Unknown Truth = iota
	True
	False
)

func (v Truth) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ParseTruth coerces the spellings survey tools use for booleans. Anything
// that is not clearly true or clearly false is Unknown.
func ParseTruth(s string) Truth {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return True
	case "false", "f", "no", "n", "0", "0.0":
		return False
	default:
		return Unknown
	}
}

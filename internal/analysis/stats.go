package analysis

import (
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// NumStats summarizes a numeric sample. Std is the sample standard
// deviation (n-1); it is 0 for fewer than two values.
type NumStats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
}

// CategoryCount is one observed value and its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// summarize computes NumStats over vals; vals is not reordered.
func summarize(vals []float64) NumStats {
	if len(vals) == 0 {
		return NumStats{}
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s := NumStats{Count: len(vals), Min: sorted[0], Max: sorted[len(sorted)-1]}
	if s.Count > 1 {
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
	}
	s.Median = median(sorted)
	return s
}

// median takes the midpoint of the two central values for even samples.
func median(sorted []float64) float64 {
	m := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if n := len(sorted); n%2 == 0 {
		m = (m + sorted[n/2]) / 2
	}
	return m
}

// topCounts orders counts by frequency, then value.
func topCounts(counts map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02",
		"2006/01/02", "1/2/2006 15:04", "1/2/2006 15:04:05", "01/02/2006",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

package pipeline

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

// ValidateOptions configures the quality checks over a long table.
type ValidateOptions struct {
	SessionColumn   string
	BlockColumn     string
	KeyColumns      []string
	FrequencyFields []string
	MinBlocks       int
}

// DefaultValidateOptions checks the identifiers plus the headline items.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{
		SessionColumn: "ResponseId",
		BlockColumn:   "video_id",
		KeyColumns: []string{
			"ResponseId", "video_id", "familiarity_plot",
			"tension_beginning", "narrative_resolution", "want_next_story",
		},
		FrequencyFields: []string{"familiarity_seen", "familiarity_plot", "narrative_resolution"},
		MinBlocks:       10,
	}
}

// MissingCount is the missing-value tally for one column.
type MissingCount struct {
	Column  string
	Count   int
	Percent float64
}

// ValueCount is one observed value and how often it occurs.
type ValueCount struct {
	Value string
	Count int
}

// Frequency is the value distribution of one field, most common first.
type Frequency struct {
	Field  string
	Values []ValueCount
}

// Report summarizes a long table. It never references the table itself.
type Report struct {
	Rows        int
	Sessions    int
	Blocks      int
	Missing     []MissingCount
	Frequencies []Frequency
	// DuplicatePairs counts (session, block) keys that occur on more than
	// one row; DuplicateRows counts the surplus rows.
	DuplicatePairs int
	DuplicateRows  int
	Issues         []string
	// Skipped names sub-computations whose column was absent.
	Skipped []string
}

// Validate computes the quality report. It only reads t.
func Validate(t *table.Table, o ValidateOptions) Report {
	rep := Report{Rows: t.Len()}

	if t.Has(o.SessionColumn) {
		rep.Sessions = distinct(t, o.SessionColumn)
	} else {
		rep.Skipped = append(rep.Skipped, "sessions: no column "+o.SessionColumn)
	}
	if t.Has(o.BlockColumn) {
		rep.Blocks = distinct(t, o.BlockColumn)
	} else {
		rep.Skipped = append(rep.Skipped, "blocks: no column "+o.BlockColumn)
	}

	for _, c := range o.KeyColumns {
		if !t.Has(c) {
			rep.Skipped = append(rep.Skipped, "missing values: no column "+c)
			continue
		}
		n := 0
		for r := 0; r < t.Len(); r++ {
			if _, ok := t.Value(r, c); !ok {
				n++
			}
		}
		mc := MissingCount{Column: c, Count: n}
		if rep.Rows > 0 {
			mc.Percent = float64(n) * 100 / float64(rep.Rows)
		}
		rep.Missing = append(rep.Missing, mc)
	}

	for _, f := range o.FrequencyFields {
		if !t.Has(f) {
			rep.Skipped = append(rep.Skipped, "frequencies: no column "+f)
			continue
		}
		rep.Frequencies = append(rep.Frequencies, Frequency{Field: f, Values: frequencies(t, f)})
	}

	if t.Has(o.SessionColumn, o.BlockColumn) {
		rep.DuplicatePairs, rep.DuplicateRows = duplicates(t, o.SessionColumn, o.BlockColumn)
	}

	if rep.Sessions == 0 {
		rep.Issues = append(rep.Issues, "No participants found in long-format data")
	}
	if rep.Blocks < o.MinBlocks {
		rep.Issues = append(rep.Issues, fmt.Sprintf("Only %d videos found (expected at least %d)", rep.Blocks, o.MinBlocks))
	}
	if rep.DuplicatePairs > 0 {
		rep.Issues = append(rep.Issues, fmt.Sprintf("Found %d duplicate participant-video combinations (%d surplus rows)", rep.DuplicatePairs, rep.DuplicateRows))
	}
	return rep
}

func distinct(t *table.Table, col string) int {
	seen := map[string]struct{}{}
	for r := 0; r < t.Len(); r++ {
		if v, ok := t.Value(r, col); ok {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func frequencies(t *table.Table, col string) []ValueCount {
	counts := map[string]int{}
	for r := 0; r < t.Len(); r++ {
		if v, ok := t.Value(r, col); ok {
			counts[v]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// duplicates ignores rows whose session id is missing.
func duplicates(t *table.Table, sessionCol, blockCol string) (pairs, surplus int) {
	type key struct{ s, b string }
	counts := map[key]int{}
	for r := 0; r < t.Len(); r++ {
		s, ok := t.Value(r, sessionCol)
		if !ok {
			continue
		}
		b, _ := t.Value(r, blockCol)
		counts[key{s, b}]++
	}
	for _, n := range counts {
		if n > 1 {
			pairs++
			surplus += n - 1
		}
	}
	return pairs, surplus
}

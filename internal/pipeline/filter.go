package pipeline

import (
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

// FilterOptions names the session columns and thresholds used to drop rows.
type FilterOptions struct {
	IDColumn       string
	MetadataMarker string
	StatusColumn   string
	PreviewMarker  string
	FinishedColumn string
	DurationColumn string
	MinDuration    float64
}

// DefaultFilterOptions matches a Qualtrics export.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		IDColumn:       "ResponseId",
		MetadataMarker: "ImportId",
		StatusColumn:   "Status",
		PreviewMarker:  "Survey Preview",
		FinishedColumn: "Finished",
		DurationColumn: "Duration (in seconds)",
		MinDuration:    60,
	}
}

// Rule is one row predicate. Keep is only called when every column in
// Requires is present.
type Rule struct {
	Name     string
	Requires []string
	Keep     func(t *table.Table, row int) bool
}

// Rules returns the predicates in the order they are applied.
func (o FilterOptions) Rules() []Rule {
	hasMarker := func(v string) bool {
		return o.MetadataMarker != "" && strings.Contains(v, o.MetadataMarker)
	}
	return []Rule{
		{
			Name:     "metadata_row",
			Requires: []string{o.IDColumn},
			Keep: func(t *table.Table, r int) bool {
				v, ok := t.Value(r, o.IDColumn)
				return !ok || !hasMarker(v)
			},
		},
		{
			Name:     "preview_session",
			Requires: []string{o.StatusColumn},
			Keep: func(t *table.Table, r int) bool {
				v, _ := t.Value(r, o.StatusColumn)
				return o.PreviewMarker == "" ||
					!strings.Contains(strings.ToLower(v), strings.ToLower(o.PreviewMarker))
			},
		},
		{
			Name:     "unfinished",
			Requires: []string{o.FinishedColumn},
			Keep: func(t *table.Table, r int) bool {
				v, _ := t.Value(r, o.FinishedColumn)
				return table.ParseTruth(v) == table.True
			},
		},
		{
			Name:     "too_short",
			Requires: []string{o.DurationColumn},
			Keep: func(t *table.Table, r int) bool {
				v, _ := t.Value(r, o.DurationColumn)
				d, ok := table.ParseNumber(v)
				return ok && d >= o.MinDuration
			},
		},
		{
			Name:     "missing_id",
			Requires: []string{o.IDColumn},
			Keep: func(t *table.Table, r int) bool {
				v, ok := t.Value(r, o.IDColumn)
				return ok && !hasMarker(v)
			},
		},
	}
}

// FilterStep records what one rule did.
type FilterStep struct {
	Rule    string
	Before  int
	Removed int
	Skipped bool
	Missing []string
}

// FilterResult is the filtered table plus the audit trail.
type FilterResult struct {
	Table *table.Table
	Steps []FilterStep
}

// Removed is the total number of rows dropped across all steps.
func (r FilterResult) Removed() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Removed
	}
	return n
}

// ApplyRules runs rules in order, each over the output of the previous one.
// A rule whose required columns are absent is skipped, not failed.
func ApplyRules(src *table.Table, rules []Rule, log observe.Logger) FilterResult {
	if log == nil {
		log = observe.Nop()
	}
	cur := src
	res := FilterResult{}
	for _, rule := range rules {
		step := FilterStep{Rule: rule.Name, Before: cur.Len()}
		for _, c := range rule.Requires {
			if !cur.Has(c) {
				step.Missing = append(step.Missing, c)
			}
		}
		if len(step.Missing) > 0 {
			step.Skipped = true
			log.Warn("filter skipped: required column absent", "rule", rule.Name, "missing", step.Missing)
			res.Steps = append(res.Steps, step)
			continue
		}
		keep := make([]bool, cur.Len())
		for r := range keep {
			keep[r] = rule.Keep(cur, r)
		}
		next := cur.Filter(keep)
		step.Removed = step.Before - next.Len()
		log.Info("filter applied", "rule", rule.Name, "before", step.Before, "removed", step.Removed, "after", next.Len())
		res.Steps = append(res.Steps, step)
		cur = next
	}
	if cur == src {
		cur = src.Filter(allTrue(src.Len()))
	}
	res.Table = cur
	return res
}

// Filter applies the default rule sequence for o.
func Filter(src *table.Table, o FilterOptions, log observe.Logger) FilterResult {
	return ApplyRules(src, o.Rules(), log)
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

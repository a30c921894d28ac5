// Package analysis produces descriptive summaries of a long-format table:
// participant-level, video-level and per-question response patterns.
package analysis

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

// Category groups canonical fields for the response-pattern section.
type Category struct {
	Name   string
	Fields []string
}

// DefaultCategories groups the study's canonical fields by question type.
func DefaultCategories() []Category {
	return []Category{
		{"Timing", []string{"timing_first_click", "timing_last_click", "timing_page_submit", "timing_click_count"}},
		{"Familiarity", []string{"familiarity_seen", "familiarity_plot", "familiarity_characters"}},
		{"Comprehension", []string{"clear_starting_point", "inferring_context", "built_interest_tension", "clear_outcome", "logical_flow"}},
		{"Tension", []string{"tension_beginning", "tension_middle", "tension_end", "introduced_tension", "resolved_tension"}},
		{"Resolution", []string{"narrative_resolution", "satisfactory_resolution", "concluded_scene", "episode_position", "season_position"}},
		{"Future_Behavior", []string{"want_next_story", "want_broader_context", "watch_full_episode", "read_comments", "comments_purpose"}},
	}
}

// Options names the columns the summaries read.
type Options struct {
	SessionColumn  string
	BlockColumn    string
	StartColumn    string
	DurationColumn string
	LanguageColumn string
	// KeyField marks a row as answered when non-missing.
	KeyField   string
	Categories []Category
	// TopValues caps the value lists printed per field.
	TopValues int
}

// DefaultOptions matches the reshaper's default long layout.
func DefaultOptions() Options {
	return Options{
		SessionColumn:  "ResponseId",
		BlockColumn:    "video_id",
		StartColumn:    "StartDate",
		DurationColumn: "Duration (in seconds)",
		LanguageColumn: "UserLanguage",
		KeyField:       "familiarity_plot",
		Categories:     DefaultCategories(),
		TopValues:      5,
	}
}

// Kinds of FieldSummary.
const (
	KindNumeric      = "numeric"
	KindCategorical  = "categorical"
	KindEmpty        = "no responses"
	KindNotAvailable = "not available"
)

// ParticipantSummary describes one row per session.
type ParticipantSummary struct {
	Participants int
	// FirstStart/LastStart are empty when no start time parsed.
	FirstStart, LastStart string
	PeriodDays            int
	DurationMinutes       NumStats
	Languages             []CategoryCount
	VideosPerParticipant  NumStats
}

// VideoSummary describes the answered rows.
type VideoSummary struct {
	KeyField          string
	Observations      int
	Participants      int
	Videos            int
	ResponsesPerVideo NumStats
}

// FieldSummary is the response pattern of one canonical field.
type FieldSummary struct {
	Name      string
	Kind      string
	Responses int
	// Numeric fields.
	Stats NumStats
	// Categorical fields.
	Unique         int
	MostCommon     string
	MostCommonRate float64
	Top            []CategoryCount
}

type CategorySummary struct {
	Name   string
	Fields []FieldSummary
}

// Report is the descriptive analysis of a long table.
type Report struct {
	Name        string
	Rows        int
	Participant ParticipantSummary
	Video       VideoSummary
	Patterns    []CategorySummary
	Warnings    []string
}

// DescribeFile loads a long-format file and describes it.
func DescribeFile(path string, opt Options) (*Report, error) {
	f, err := table.ReadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	rep := Describe(f.Table, opt)
	rep.Name = filepath.Base(path)
	return rep, nil
}

// Describe computes the report. Absent columns produce warnings and
// "not available" entries instead of errors.
func Describe(t *table.Table, opt Options) *Report {
	rep := &Report{Rows: t.Len()}
	for _, c := range []string{opt.SessionColumn, opt.BlockColumn} {
		if !t.Has(c) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q not found", c))
		}
	}
	rep.Participant = participants(t, opt, rep)
	answered := answeredRows(t, opt, rep)
	rep.Video = videos(t, answered, opt)
	for _, cat := range opt.Categories {
		cs := CategorySummary{Name: cat.Name}
		for _, f := range cat.Fields {
			cs.Fields = append(cs.Fields, field(t, answered, f, opt.TopValues))
		}
		rep.Patterns = append(rep.Patterns, cs)
	}
	return rep
}

func participants(t *table.Table, opt Options, rep *Report) ParticipantSummary {
	var ps ParticipantSummary
	if !t.Has(opt.SessionColumn) {
		return ps
	}
	first := map[string]int{}
	perSession := map[string]int{}
	var order []string
	for r := 0; r < t.Len(); r++ {
		id, ok := t.Value(r, opt.SessionColumn)
		if !ok {
			continue
		}
		if _, seen := first[id]; !seen {
			first[id] = r
			order = append(order, id)
		}
		if _, ok := t.Value(r, opt.BlockColumn); ok {
			perSession[id]++
		}
	}
	ps.Participants = len(order)

	var durations []float64
	langs := map[string]int{}
	var lo, hi time.Time
	for _, id := range order {
		r := first[id]
		if v, ok := t.Value(r, opt.DurationColumn); ok {
			if d, ok := table.ParseNumber(v); ok {
				durations = append(durations, d/60)
			}
		}
		if v, ok := t.Value(r, opt.LanguageColumn); ok {
			langs[v]++
		}
		if v, ok := t.Value(r, opt.StartColumn); ok {
			if ts, ok := parseTimeMaybe(v); ok {
				if lo.IsZero() || ts.Before(lo) {
					lo, ps.FirstStart = ts, v
				}
				if hi.IsZero() || ts.After(hi) {
					hi, ps.LastStart = ts, v
				}
			}
		}
	}
	if !lo.IsZero() {
		ps.PeriodDays = int(hi.Sub(lo).Hours() / 24)
	}
	ps.DurationMinutes = summarize(durations)
	if t.Has(opt.DurationColumn) && len(durations) == 0 {
		rep.Warnings = append(rep.Warnings, "no numeric session durations")
	}
	ps.Languages = topCounts(langs)

	var per []float64
	for _, id := range order {
		per = append(per, float64(perSession[id]))
	}
	ps.VideosPerParticipant = summarize(per)
	return ps
}

// answeredRows marks rows whose key field is present. Without the key
// field every row counts as answered.
func answeredRows(t *table.Table, opt Options, rep *Report) []int {
	var rows []int
	if !t.Has(opt.KeyField) {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("key field %q not found; using all rows", opt.KeyField))
		for r := 0; r < t.Len(); r++ {
			rows = append(rows, r)
		}
		return rows
	}
	for r := 0; r < t.Len(); r++ {
		if _, ok := t.Value(r, opt.KeyField); ok {
			rows = append(rows, r)
		}
	}
	return rows
}

func videos(t *table.Table, rows []int, opt Options) VideoSummary {
	vs := VideoSummary{KeyField: opt.KeyField, Observations: len(rows)}
	sessions := map[string]struct{}{}
	perVideo := map[string]int{}
	for _, r := range rows {
		if v, ok := t.Value(r, opt.SessionColumn); ok {
			sessions[v] = struct{}{}
		}
		if v, ok := t.Value(r, opt.BlockColumn); ok {
			perVideo[v]++
		}
	}
	vs.Participants = len(sessions)
	vs.Videos = len(perVideo)
	counts := make([]float64, 0, len(perVideo))
	for _, n := range perVideo {
		counts = append(counts, float64(n))
	}
	vs.ResponsesPerVideo = summarize(counts)
	return vs
}

func field(t *table.Table, rows []int, name string, top int) FieldSummary {
	fs := FieldSummary{Name: name}
	if !t.Has(name) {
		fs.Kind = KindNotAvailable
		return fs
	}
	var raw []string
	for _, r := range rows {
		if v, ok := t.Value(r, name); ok {
			raw = append(raw, v)
		}
	}
	fs.Responses = len(raw)
	if len(raw) == 0 {
		fs.Kind = KindEmpty
		return fs
	}
	nums := make([]float64, 0, len(raw))
	for _, v := range raw {
		x, ok := table.ParseNumber(v)
		if !ok {
			nums = nil
			break
		}
		nums = append(nums, x)
	}
	if nums != nil {
		fs.Kind = KindNumeric
		fs.Stats = summarize(nums)
		return fs
	}
	fs.Kind = KindCategorical
	counts := map[string]int{}
	for _, v := range raw {
		counts[v]++
	}
	all := topCounts(counts)
	fs.Unique = len(all)
	fs.MostCommon = all[0].Value
	fs.MostCommonRate = float64(all[0].Count) / float64(len(raw))
	if top > 0 && len(all) > top {
		all = all[:top]
	}
	fs.Top = all
	return fs
}

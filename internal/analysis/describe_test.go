package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

func longFixture() *table.Table {
	cols := []string{"StartDate", "Duration (in seconds)", "ResponseId", "UserLanguage", "familiarity_plot", "tension_beginning", "video_id"}
	return table.MustNew(cols, [][]string{
		{"2025-03-01 10:00:00", "600", "R_1", "EN", "Yes", "3", "clip_1"},
		{"2025-03-01 10:00:00", "600", "R_1", "EN", "No", "4", "clip_2"},
		{"2025-03-04 09:00:00", "1200", "R_2", "ES", "Yes", "5", "clip_1"},
		{"2025-03-04 09:00:00", "1200", "R_2", "ES", "", "", "clip_3"},
		{"2025-03-02 12:00:00", "300", "R_3", "EN", "Yes", "2", "clip_2"},
	})
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDescribeParticipants(t *testing.T) {
	rep := Describe(longFixture(), DefaultOptions())
	p := rep.Participant
	if p.Participants != 3 {
		t.Fatalf("participants = %d", p.Participants)
	}
	if p.FirstStart != "2025-03-01 10:00:00" || p.LastStart != "2025-03-04 09:00:00" || p.PeriodDays != 2 {
		t.Fatalf("period = %s..%s (%d days)", p.FirstStart, p.LastStart, p.PeriodDays)
	}
	// One duration per participant: 10, 20, 5 minutes.
	d := p.DurationMinutes
	if d.Count != 3 || !near(d.Mean, 35.0/3) || !near(d.Median, 10) || d.Min != 5 || d.Max != 20 {
		t.Fatalf("duration = %+v", d)
	}
	if !near(d.Std, math.Sqrt(175.0/3)) {
		t.Fatalf("std = %v", d.Std)
	}
	if len(p.Languages) != 2 || p.Languages[0].Value != "EN" || p.Languages[0].Count != 2 {
		t.Fatalf("languages = %+v", p.Languages)
	}
	if v := p.VideosPerParticipant; v.Min != 1 || v.Max != 2 || !near(v.Mean, 5.0/3) {
		t.Fatalf("videos per participant = %+v", v)
	}
}

func TestDescribeVideosUsesAnsweredRows(t *testing.T) {
	rep := Describe(longFixture(), DefaultOptions())
	v := rep.Video
	if v.Observations != 4 || v.Participants != 3 || v.Videos != 2 {
		t.Fatalf("video summary = %+v", v)
	}
	if v.ResponsesPerVideo.Min != 2 || v.ResponsesPerVideo.Max != 2 {
		t.Fatalf("responses per video = %+v", v.ResponsesPerVideo)
	}
}

func TestDescribeFieldKinds(t *testing.T) {
	rep := Describe(longFixture(), DefaultOptions())
	got := map[string]FieldSummary{}
	for _, c := range rep.Patterns {
		for _, f := range c.Fields {
			got[f.Name] = f
		}
	}
	fam := got["familiarity_plot"]
	if fam.Kind != KindCategorical || fam.Responses != 4 || fam.MostCommon != "Yes" || !near(fam.MostCommonRate, 0.75) || fam.Unique != 2 {
		t.Fatalf("familiarity_plot = %+v", fam)
	}
	ten := got["tension_beginning"]
	if ten.Kind != KindNumeric || ten.Stats.Count != 4 || !near(ten.Stats.Mean, 3.5) || !near(ten.Stats.Median, 3.5) {
		t.Fatalf("tension_beginning = %+v", ten)
	}
	if got["want_next_story"].Kind != KindNotAvailable {
		t.Fatalf("absent field kind = %q", got["want_next_story"].Kind)
	}
	if len(rep.Patterns) != len(DefaultCategories()) {
		t.Fatalf("categories = %d", len(rep.Patterns))
	}
}

func TestDescribeMissingColumns(t *testing.T) {
	rep := Describe(table.MustNew([]string{"x"}, [][]string{{"1"}}), DefaultOptions())
	if rep.Participant.Participants != 0 || len(rep.Warnings) < 3 {
		t.Fatalf("report = %+v", rep)
	}
	md := rep.Markdown()
	if !strings.Contains(md, "Session duration: not available") || !strings.Contains(md, "- familiarity_plot: not available") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestDescribeFileMarkdown(t *testing.T) {
	p := filepath.Join(t.TempDir(), "study_long_format.csv")
	var b strings.Builder
	if err := table.Write(&b, longFixture(), ','); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	rep, err := DescribeFile(p, DefaultOptions())
	if err != nil {
		t.Fatalf("DescribeFile: %v", err)
	}
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]", "File: study_long_format.csv", "Rows: 5",
		"[PARTICIPANTS]", "- Total participants: 3", "Languages: EN(2), ES(1)",
		"[VIDEOS]", "- Videos with responses: 2",
		"[RESPONSE PATTERNS]", "Familiarity:", "most common Yes (75.0%)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if _, err := DescribeFile(filepath.Join(t.TempDir(), "none.csv"), DefaultOptions()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

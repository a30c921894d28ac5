package pipeline

import (
	"testing"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

var filterCols = []string{"ResponseId", "Status", "Finished", "Duration (in seconds)"}

func TestFilterCumulativeCounts(t *testing.T) {
	src := table.MustNew(filterCols, [][]string{
		{`{"ImportId":"_recordId"}`, `{"ImportId":"status"}`, `{"ImportId":"finished"}`, `{"ImportId":"duration"}`},
		{"R_prev", "Survey Preview", "True", "300"},
		{"R_unf", "IP Address", "False", "300"},
		{"R_short", "IP Address", "True", "59.999"},
		{"R_edge", "IP Address", "True", "60"},
		{"", "IP Address", "True", "120"},
		{"R_ok", "IP Address", "1", "1.200,5"},
		{"R_nodur", "IP Address", "True", "n/a"},
	})
	rec := observe.NewRecorder()
	res := Filter(src, DefaultFilterOptions(), rec)

	want := []struct {
		rule            string
		before, removed int
	}{
		{"metadata_row", 8, 1},
		{"preview_session", 7, 1},
		{"unfinished", 6, 1},
		{"too_short", 5, 2},
		{"missing_id", 3, 1},
	}
	if len(res.Steps) != len(want) {
		t.Fatalf("steps = %d, want %d", len(res.Steps), len(want))
	}
	prev := src.Len()
	for i, w := range want {
		s := res.Steps[i]
		if s.Rule != w.rule || s.Before != w.before || s.Removed != w.removed || s.Skipped {
			t.Fatalf("step %d = %+v, want %+v", i, s, w)
		}
		if s.Before > prev {
			t.Fatalf("row count increased at %s", s.Rule)
		}
		prev = s.Before - s.Removed
	}
	if res.Table.Len() != 2 || res.Removed() != 6 {
		t.Fatalf("kept %d removed %d", res.Table.Len(), res.Removed())
	}
	ids, _ := res.Table.Column("ResponseId")
	if ids[0] != "R_edge" || ids[1] != "R_ok" {
		t.Fatalf("kept ids = %v", ids)
	}
	if src.Len() != 8 {
		t.Fatalf("source mutated")
	}
	if rec.Count("info", "filter applied") != 5 {
		t.Fatalf("expected one audit log per rule: %#v", rec.Entries())
	}
}

func TestFilterFinishedSpellings(t *testing.T) {
	cols := []string{"ResponseId", "Finished"}
	src := table.MustNew(cols, [][]string{
		{"R_1", "True"},
		{"R_2", "False"},
		{"R_3", ""},
		{"R_4", "maybe"},
	})
	res := Filter(src, DefaultFilterOptions(), nil)
	ids, _ := res.Table.Column("ResponseId")
	if len(ids) != 1 || ids[0] != "R_1" {
		t.Fatalf("kept = %v", ids)
	}
}

func TestFilterSkipsRulesWithoutColumns(t *testing.T) {
	src := table.MustNew([]string{"ResponseId"}, [][]string{{"R_1"}, {"R_2"}})
	rec := observe.NewRecorder()
	res := Filter(src, DefaultFilterOptions(), rec)
	skipped := 0
	for _, s := range res.Steps {
		if s.Skipped {
			skipped++
			if len(s.Missing) != 1 {
				t.Fatalf("missing = %v", s.Missing)
			}
		}
	}
	if skipped != 3 {
		t.Fatalf("skipped = %d, want 3", skipped)
	}
	if res.Table.Len() != 2 || res.Table == src {
		t.Fatalf("expected a copy with both rows")
	}
	if rec.Count("warn", "filter skipped") != 3 {
		t.Fatalf("skip warnings = %d", rec.Count("warn", "filter skipped"))
	}
}

func TestFilterDurationBoundary(t *testing.T) {
	o := DefaultFilterOptions()
	for _, c := range []struct {
		dur  string
		keep bool
	}{{"60", true}, {"59.999", false}, {"59,999", false}, {"60,0", true}, {"60.0", true}, {"", false}, {"abc", false}} {
		src := table.MustNew([]string{"Duration (in seconds)"}, [][]string{{c.dur}})
		res := ApplyRules(src, o.Rules()[3:4], nil)
		if got := res.Table.Len() == 1; got != c.keep {
			t.Errorf("duration %q kept=%v, want %v", c.dur, got, c.keep)
		}
	}
}

package pipeline

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

var smallMapping = MustFieldMapping([]Field{
	{Canonical: "familiarity_plot", Suffix: "Fam_plot"},
	{Canonical: "narrative_resolution", Suffix: "Reso_clip"},
	{Canonical: "concluded_scene", Suffix: "Reso_clip_end"},
})

func smallOptions() ReshapeOptions {
	o := DefaultReshapeOptions()
	o.BaseColumns = []string{"ResponseId", "UserLanguage"}
	o.TrailingColumns = []string{"Age"}
	return o
}

func TestReshapeRoundTripSingleBlock(t *testing.T) {
	wide := table.MustNew(
		[]string{"ResponseId", "UserLanguage", "7_Fam_plot", "7_Reso_clip", "7_Reso_clip_end", "Age"},
		[][]string{
			{"R_1", "EN", "Yes", "4", "2", "31"},
			{"R_2", "ES", "No", "5", "", "27"},
		})
	res, err := Reshape(wide, []Block{"7"}, smallMapping, smallOptions(), nil)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	long := res.Table
	wantCols := []string{"ResponseId", "UserLanguage", "familiarity_plot", "narrative_resolution", "concluded_scene", "Age", "video_id"}
	if !reflect.DeepEqual(long.Columns, wantCols) {
		t.Fatalf("columns = %v", long.Columns)
	}

	// Reverse the rename and drop the tag: the block's wide columns come back.
	var back []string
	rename := map[string]string{}
	for _, c := range long.Columns {
		if c == "video_id" {
			continue
		}
		back = append(back, c)
		if s, ok := smallMapping.Suffix(c); ok {
			rename[c] = Block("7").Column(s)
		}
	}
	restored, err := long.Select(back, rename)
	if err != nil {
		t.Fatalf("reverse select: %v", err)
	}
	if !reflect.DeepEqual(restored.Columns, wide.Columns) || !reflect.DeepEqual(restored.Rows, wide.Rows) {
		t.Fatalf("round trip mismatch:\n got %v %v\nwant %v %v", restored.Columns, restored.Rows, wide.Columns, wide.Rows)
	}
	labels, _ := long.Column("video_id")
	if labels[0] != "clip_7" || labels[1] != "clip_7" {
		t.Fatalf("labels = %v", labels)
	}
}

func TestReshapeStacksBlocksInOrderAndOmitsAbsentFields(t *testing.T) {
	wide := table.MustNew(
		[]string{"ResponseId", "1_Fam_plot", "1_Reso_clip", "1_Extra", "2_Reso_clip", "Age"},
		[][]string{
			{"R_1", "Yes", "4", "x", "3", "31"},
			{"R_2", "No", "5", "y", "1", "27"},
		})
	rec := observe.NewRecorder()
	res, err := Reshape(wide, []Block{"1", "2", "3"}, smallMapping, smallOptions(), rec)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	long := res.Table
	want := [][]string{
		{"R_1", "Yes", "4", "31", "clip_1"},
		{"R_2", "No", "5", "27", "clip_1"},
		{"R_1", "", "3", "31", "clip_2"},
		{"R_2", "", "1", "27", "clip_2"},
	}
	if !reflect.DeepEqual(long.Columns, []string{"ResponseId", "familiarity_plot", "narrative_resolution", "Age", "video_id"}) {
		t.Fatalf("columns = %v", long.Columns)
	}
	if !reflect.DeepEqual(long.Rows, want) {
		t.Fatalf("rows = %v", long.Rows)
	}
	if got := res.Emitted(); !reflect.DeepEqual(got, []Block{"1", "2"}) {
		t.Fatalf("emitted = %v", got)
	}
	b3 := res.Blocks[2]
	if !b3.Skipped || b3.Block != "3" {
		t.Fatalf("block 3 = %+v", b3)
	}
	if rec.Count("warn", "block has no columns") != 1 {
		t.Fatalf("expected skip warning, got %#v", rec.Entries())
	}
	b1 := res.Blocks[0]
	if b1.Unmapped != 1 || !reflect.DeepEqual(b1.Missing, []string{"concluded_scene"}) {
		t.Fatalf("block 1 = %+v", b1)
	}
	if !reflect.DeepEqual(res.Blocks[1].Missing, []string{"familiarity_plot", "concluded_scene"}) {
		t.Fatalf("block 2 missing = %v", res.Blocks[1].Missing)
	}
	if rec.Count("warn", "canonical field not found") != 3 {
		t.Fatalf("missing-field warnings = %d", rec.Count("warn", "canonical field not found"))
	}
}

func TestReshapeAllBlocksSkippedIsEmpty(t *testing.T) {
	wide := table.MustNew([]string{"ResponseId", "Age"}, [][]string{{"R_1", "30"}})
	rec := observe.NewRecorder()
	res, err := Reshape(wide, []Block{"1", "2", "3"}, smallMapping, smallOptions(), rec)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if res.Table.Len() != 0 {
		t.Fatalf("expected no rows, got %v", res.Table.Rows)
	}
	if want := []string{"ResponseId", "Age", "video_id"}; !reflect.DeepEqual(res.Table.Columns, want) {
		t.Fatalf("columns = %v, want %v", res.Table.Columns, want)
	}
	if rec.Count("error", "long table is empty") != 1 {
		t.Fatalf("expected error log")
	}
	rep := Validate(res.Table, DefaultValidateOptions())
	if rep.Rows != 0 || !containsIssue(rep.Issues, "No participants") {
		t.Fatalf("report = %+v", rep)
	}
}

func TestReshapeEmptySourceKeepsMappedLayout(t *testing.T) {
	wide := table.MustNew([]string{"ResponseId", "1_Fam_plot", "1_Reso_clip", "Age"}, nil)
	res, err := Reshape(wide, []Block{"1"}, smallMapping, smallOptions(), nil)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	want := []string{"ResponseId", "familiarity_plot", "narrative_resolution", "Age", "video_id"}
	if res.Table.Len() != 0 || !reflect.DeepEqual(res.Table.Columns, want) {
		t.Fatalf("table = %v %v, want columns %v", res.Table.Columns, res.Table.Rows, want)
	}
	var buf bytes.Buffer
	if err := table.Write(&buf, res.Table, ','); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != strings.Join(want, ",")+"\n" {
		t.Fatalf("serialized %q", got)
	}
}

func TestReshapeZeroPaddedBlock(t *testing.T) {
	wide := table.MustNew([]string{"ResponseId", "01_Reso_clip"}, [][]string{{"R_1", "4"}})
	blocks := Inspect(wide.Columns, BlockPattern{Marker: "Reso_clip", Reserved: []string{"_end"}})
	res, err := Reshape(wide, blocks, smallMapping, smallOptions(), nil)
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if res.Table.Len() != 1 || res.Blocks[0].Skipped {
		t.Fatalf("blocks = %+v rows = %v", res.Blocks, res.Table.Rows)
	}
	if got, _ := res.Table.Value(0, "video_id"); got != "clip_01" {
		t.Fatalf("video_id = %q", got)
	}
	if got, _ := res.Table.Value(0, "narrative_resolution"); got != "4" {
		t.Fatalf("narrative_resolution = %q", got)
	}
}

func TestReshapeRejectsCollidingColumns(t *testing.T) {
	wide := table.MustNew([]string{"ResponseId", "familiarity_plot", "1_Fam_plot"}, [][]string{{"R", "x", "y"}})
	o := smallOptions()
	o.BaseColumns = []string{"ResponseId", "familiarity_plot"}
	if _, err := Reshape(wide, []Block{"1"}, smallMapping, o, nil); err == nil {
		t.Fatalf("expected collision error")
	}
}

func TestFieldMappingValidation(t *testing.T) {
	if _, err := NewFieldMapping([]Field{{"a", "x"}, {"b", "x"}}); err == nil {
		t.Fatalf("expected duplicate suffix error")
	}
	if _, err := NewFieldMapping([]Field{{"a", "x"}, {"a", "y"}}); err == nil {
		t.Fatalf("expected duplicate canonical error")
	}
	if _, err := NewFieldMapping([]Field{{"", "x"}}); err == nil {
		t.Fatalf("expected empty name error")
	}
	m, err := NewFieldMapping(DefaultFields())
	if err != nil {
		t.Fatalf("default fields: %v", err)
	}
	for _, f := range m.Fields() {
		c, ok := m.Canonical(f.Suffix)
		if !ok || c != f.Canonical {
			t.Fatalf("not a bijection at %+v", f)
		}
	}
	fs := m.Fields()
	fs[0].Canonical = "mutated"
	if m.Fields()[0].Canonical == "mutated" {
		t.Fatalf("Fields exposes internal storage")
	}
}

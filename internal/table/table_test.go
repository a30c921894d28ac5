package table

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf16"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestReadFileSkipsLabelRowAndDedupes(t *testing.T) {
	content := "\ufeffResponseId,Finished,Q1,Q1\n" +
		"Response ID,Finished,Question one,Question one again\n" +
		"R_1,True,a,b\n" +
		"R_2,False,c\n"
	p := writeFile(t, "raw.csv", []byte(content))

	f, err := ReadFile(p, ReadOptions{SkipRows: 1})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []string{"ResponseId", "Finished", "Q1", "Q1.1"}
	if !reflect.DeepEqual(f.Table.Columns, want) {
		t.Fatalf("columns = %#v, want %#v", f.Table.Columns, want)
	}
	if f.Renamed["Q1.1"] != "Q1" {
		t.Fatalf("renamed = %#v", f.Renamed)
	}
	if f.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", f.Table.Len())
	}
	if f.Ragged != 1 {
		t.Fatalf("ragged = %d, want 1", f.Ragged)
	}
	if v, ok := f.Table.Value(1, "Q1.1"); ok || v != "" {
		t.Fatalf("padded cell = %q/%v, want missing", v, ok)
	}
}

func TestReadHeaderUTF16TSV(t *testing.T) {
	text := "StartDate\t1_Reso_clip\t2_Reso_clip\nx\ty\tz\n"
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(text)) {
		buf.WriteByte(byte(u))
		buf.WriteByte(byte(u >> 8))
	}
	p := writeFile(t, "export.tsv", buf.Bytes())

	h, err := ReadHeader(p, 0)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	want := []string{"StartDate", "1_Reso_clip", "2_Reso_clip"}
	if !reflect.DeepEqual(h, want) {
		t.Fatalf("header = %#v, want %#v", h, want)
	}
}

func TestReadHeaderEmptyAndMissing(t *testing.T) {
	p := writeFile(t, "empty.csv", nil)
	if _, err := ReadHeader(p, 0); err != ErrEmptyHeader {
		t.Fatalf("err = %v, want ErrEmptyHeader", err)
	}
	if _, err := ReadHeader(filepath.Join(t.TempDir(), "nope.csv"), 0); !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestFilterDoesNotMutate(t *testing.T) {
	src := MustNew([]string{"a"}, [][]string{{"1"}, {"2"}, {"3"}})
	out := src.Filter([]bool{true, false, true})
	if out.Len() != 2 || src.Len() != 3 {
		t.Fatalf("lens = %d/%d", out.Len(), src.Len())
	}
	out.Rows[0][0] = "x"
	if src.Rows[0][0] != "1" {
		t.Fatalf("filter shares row storage with source")
	}
}

func TestSelectConstantConcat(t *testing.T) {
	src := MustNew([]string{"id", "1_x", "2_x"}, [][]string{{"r1", "a", "b"}})
	one, err := src.Select([]string{"id", "1_x"}, map[string]string{"1_x": "x"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	one, err = one.WithConstant("video_id", "clip_1")
	if err != nil {
		t.Fatalf("constant: %v", err)
	}
	two, _ := src.Select([]string{"id"}, nil)
	two, _ = two.WithConstant("video_id", "clip_2")

	all, err := Concat([]string{"id", "x", "video_id"}, one, two)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	want := [][]string{{"r1", "a", "clip_1"}, {"r1", "", "clip_2"}}
	if !reflect.DeepEqual(all.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", all.Rows, want)
	}
	if _, err := Concat([]string{"id"}, one); err == nil {
		t.Fatalf("expected layout error")
	}
	if _, err := src.Select([]string{"nope"}, nil); err == nil {
		t.Fatalf("expected select error")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	src := MustNew([]string{"a", "b"}, [][]string{{"1", "x,y"}, {"", "z"}})
	p := filepath.Join(t.TempDir(), "nested", "out.tsv")
	if err := WriteFile(p, src, '\t'); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := ReadFile(p, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(f.Table.Rows, src.Rows) {
		t.Fatalf("rows = %#v", f.Table.Rows)
	}

	var buf bytes.Buffer
	if err := Write(&buf, Empty(), ','); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("empty table wrote %q", buf.String())
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "long.csv")
	if err := os.WriteFile(p, []byte("stale contents that are longer than the table\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(p, MustNew([]string{"a"}, [][]string{{"1"}}), ','); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, _ := os.ReadFile(p)
	if string(got) != "a\n1\n" {
		t.Fatalf("content = %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"60", 60, true},
		{" 59.999 ", 59.999, true},
		{"1,234", 1.234, true},
		{"59,999", 59.999, true},
		{"1,234,567", 1234567, true},
		{"12,5", 12.5, true},
		{"1.234,5", 1234.5, true},
		{"1,234.5", 1234.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseNumber(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseTruth(t *testing.T) {
	for in, want := range map[string]Truth{
		"True": True, "true": True, "1": True, "YES": True,
		"False": False, "0": False, "no": False,
		"": Unknown, "maybe": Unknown, "2": Unknown,
	} {
		if got := ParseTruth(in); got != want {
			t.Errorf("ParseTruth(%q) = %v, want %v", in, got, want)
		}
	}
	if !strings.EqualFold(True.String(), "true") {
		t.Fatalf("String() = %q", True.String())
	}
}

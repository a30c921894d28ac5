package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyHeader is returned when a source has no header record.
var ErrEmptyHeader = errors.New("source has no header row")

// ReadOptions controls how a delimited export is loaded.
type ReadOptions struct {
	// Delimiter; if 0, chosen from the file extension.
	Delimiter rune
	// SkipRows is the number of records after the header that are labels,
	// not data (survey tools emit a question-text row).
	SkipRows int
}

// File is a loaded source plus what was adjusted while loading it.
type File struct {
	Table *Table
	// Renamed maps disambiguated header names to the original duplicate.
	Renamed map[string]string
	// Ragged counts data rows whose field count differed from the header.
	Ragged int
}

// SniffDelimiter picks a delimiter from the file name: tab for .tsv, .tab
// and .txt, comma otherwise.
func SniffDelimiter(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab", ".txt":
		return '\t'
	}
	return ','
}

// Extension is the file extension written for a delimiter.
func Extension(delim rune) string {
	if delim == '\t' {
		return "tsv"
	}
	return "csv"
}

func open(path string, delim rune) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if delim == 0 {
		delim = SniffDelimiter(path)
	}
	// Honors a UTF-8 or UTF-16 byte order mark; plain UTF-8 otherwise.
	dec := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	r := csv.NewReader(dec)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, f, nil
}

func readHeader(r *csv.Reader) ([]string, error) {
	rec, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	out := make([]string, len(rec))
	for i, h := range rec {
		out[i] = norm.NFC.String(strings.TrimSpace(h))
	}
	if len(out) == 0 || (len(out) == 1 && out[0] == "") {
		return nil, ErrEmptyHeader
	}
	return out, nil
}

// ReadHeader reads only the header record of a delimited file.
func ReadHeader(path string, delim rune) ([]string, error) {
	r, c, err := open(path, delim)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return readHeader(r)
}

// ReadFile loads a delimited export. Duplicate header names get a ".N"
// suffix, short rows are padded and long rows truncated.
func ReadFile(path string, opt ReadOptions) (*File, error) {
	r, c, err := open(path, opt.Delimiter)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	out := &File{}
	header, out.Renamed = dedupe(header)

	var rows [][]string
	line := 1
	skip := opt.SkipRows
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++
		if skip > 0 {
			skip--
			continue
		}
		if len(rec) != len(header) {
			out.Ragged++
		}
		rows = append(rows, rec)
	}
	t, err := New(header, rows)
	if err != nil {
		return nil, err
	}
	out.Table = t
	return out, nil
}

func dedupe(header []string) ([]string, map[string]string) {
	seen := make(map[string]int, len(header))
	for _, h := range header {
		seen[h] = 0
	}
	var renamed map[string]string
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if !used[h] {
			used[h] = true
			out[i] = h
			continue
		}
		n := seen[h]
		name := h
		for used[name] {
			n++
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h] = n
		used[name] = true
		out[i] = name
		if renamed == nil {
			renamed = make(map[string]string)
		}
		renamed[name] = h
	}
	return out, renamed
}

// Write serializes a table with a header row.
func Write(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if len(t.Columns) > 0 {
		if err := cw.Write(t.Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile renders a table and replaces path atomically, creating parent
// directories.
func WriteFile(path string, t *Table, delim rune) error {
	var buf bytes.Buffer
	if err := Write(&buf, t, delim); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

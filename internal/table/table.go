// Package table holds the in-memory representation of a delimited survey
// export and the readers and writers for it. Cells are strings; a cell that
// is empty after trimming is missing.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over string rows. Every row has
// exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a table, padding or truncating rows to the column count.
// Column names must be unique.
func New(columns []string, rows [][]string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	t := &Table{Columns: append([]string(nil), columns...), index: idx}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(columns)))
	}
	return t, nil
}

// MustNew is New for literals in tests and defaults.
func MustNew(columns []string, rows [][]string) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no columns and no rows.
func Empty() *Table { return &Table{index: map[string]int{}} }

func fitRow(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}

func (t *Table) lookup() map[string]int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[c] = i
		}
	}
	return t.index
}

// Len is the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of a column.
func (t *Table) Index(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.lookup()[name]
	return i, ok
}

// Has reports whether every named column is present.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.Index(n); !ok {
			return false
		}
	}
	return true
}

// Value returns the trimmed cell at (row, column) and whether it is present
// and non-missing.
func (t *Table) Value(row int, column string) (string, bool) {
	i, ok := t.Index(column)
	if !ok || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	v := strings.TrimSpace(t.Rows[row][i])
	return v, v != ""
}

// Column returns a copy of a column's raw cells.
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.Index(name)
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, true
}

// Filter returns a new table holding the rows where keep is true. The
// receiver is not modified; row slices are copied.
func (t *Table) Filter(keep []bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for r, row := range t.Rows {
		if r < len(keep) && keep[r] {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// Select projects the named columns, renaming each to rename[name] when
// present. Missing source columns are an error.
func (t *Table) Select(columns []string, rename map[string]string) (*Table, error) {
	src := make([]int, len(columns))
	names := make([]string, len(columns))
	for k, c := range columns {
		i, ok := t.Index(c)
		if !ok {
			return nil, fmt.Errorf("select: no column %q", c)
		}
		src[k] = i
		names[k] = c
		if to, ok := rename[c]; ok {
			names[k] = to
		}
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(src))
		for k, i := range src {
			out[k] = row[i]
		}
		rows[r] = out
	}
	return New(names, rows)
}

// WithConstant returns a copy with an extra column set to value on every row.
func (t *Table) WithConstant(name, value string) (*Table, error) {
	if t.Has(name) {
		return nil, fmt.Errorf("column %q already present", name)
	}
	cols := append(append([]string(nil), t.Columns...), name)
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rows[r] = append(append([]string(nil), row...), value)
	}
	return New(cols, rows)
}

// Concat stacks tables in order onto the given column layout. Cells for
// columns a part does not carry are left missing; part columns not in the
// layout are an error.
func Concat(columns []string, parts ...*Table) (*Table, error) {
	out, err := New(columns, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		pos := make([]int, len(p.Columns))
		for k, c := range p.Columns {
			i, ok := out.Index(c)
			if !ok {
				return nil, fmt.Errorf("concat: column %q not in layout", c)
			}
			pos[k] = i
		}
		for _, row := range p.Rows {
			dst := make([]string, len(columns))
			for k, i := range pos {
				dst[i] = row[k]
			}
			out.Rows = append(out.Rows, dst)
		}
	}
	return out, nil
}

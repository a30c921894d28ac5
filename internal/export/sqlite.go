// Package export publishes a finished run to optional sinks: a SQLite
// database, a Prometheus textfile and an S3 bucket.
package export

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/table"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	_ "modernc.org/sqlite"
)

// RunIDColumn is added to every row written to SQLite.
const RunIDColumn = "run_id"

// SQLiteOptions names the destination table and the columns to index.
type SQLiteOptions struct {
	Table   string
	Indexes []string
	// Replace drops any existing table of the same name first; otherwise
	// rows are appended and columns the table lacks are added.
	Replace bool
}

// WriteSQLite stores t in the database at path, one TEXT column per table
// column plus run_id. Missing cells are stored as NULL.
func WriteSQLite(path string, t *table.Table, runID string, o SQLiteOptions) error {
	if o.Table == "" {
		o.Table = "long_format"
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("sqlite: table has no columns")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	defer db.Close()

	cols := append([]string{RunIDColumn}, t.Columns...)
	var defs, quoted []string
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%s TEXT", ident(c)))
		quoted = append(quoted, ident(c))
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	name := ident(o.Table)
	if o.Replace {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + name); err != nil {
			return fmt.Errorf("sqlite drop: %w", err)
		}
	}
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS ` + name + ` (` + strings.Join(defs, ",") + `)`); err != nil {
		return fmt.Errorf("sqlite create: %w", err)
	}
	if err := addMissingColumns(tx, o.Table, cols); err != nil {
		return err
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.Prepare(`INSERT INTO ` + name + ` (` + strings.Join(quoted, ",") + `) VALUES (` + ph + `)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()
	for r := 0; r < t.Len(); r++ {
		args := make([]any, 0, len(cols))
		args = append(args, runID)
		for _, c := range t.Columns {
			args = append(args, sqliteValue(t, r, c))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("sqlite insert row %d: %w", r+1, err)
		}
	}
	for _, c := range append([]string{RunIDColumn}, o.Indexes...) {
		if c != RunIDColumn && !t.Has(c) {
			continue
		}
		idx := ident("idx_" + o.Table + "_" + c)
		if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS ` + idx + ` ON ` + name + `(` + ident(c) + `)`); err != nil {
			return fmt.Errorf("sqlite index %s: %w", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// addMissingColumns widens an existing table so rows from a run with a
// different layout can be appended. Earlier rows read NULL in new columns.
func addMissingColumns(tx *sql.Tx, tableName string, cols []string) error {
	rows, err := tx.Query(`SELECT name FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return fmt.Errorf("sqlite table info: %w", err)
	}
	have := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("sqlite table info: %w", err)
		}
		have[name] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("sqlite table info: %w", err)
	}
	for _, c := range cols {
		if have[c] {
			continue
		}
		if _, err := tx.Exec(`ALTER TABLE ` + ident(tableName) + ` ADD COLUMN ` + ident(c) + ` TEXT`); err != nil {
			return fmt.Errorf("sqlite add column %s: %w", c, err)
		}
	}
	return nil
}

func sqliteValue(t *table.Table, row int, col string) any {
	v, ok := t.Value(row, col)
	if !ok {
		return nil
	}
	return v
}

// ident quotes an SQL identifier.
func ident(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

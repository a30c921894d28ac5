package pipeline

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

// ReshapeOptions selects the per-session columns carried onto every long row.
type ReshapeOptions struct {
	// BaseColumns are session-level columns placed first (allow-list).
	BaseColumns []string
	// TrailingColumns are demographic/consent columns placed after the
	// canonical fields (allow-list).
	TrailingColumns []string
	// BlockColumn receives the block label.
	BlockColumn string
	// LabelPrefix is prepended to the block index to form the label.
	LabelPrefix string
}

// DefaultReshapeOptions matches a Qualtrics export of the study.
func DefaultReshapeOptions() ReshapeOptions {
	return ReshapeOptions{
		BaseColumns: []string{
			"StartDate", "EndDate", "Status", "Progress", "Duration (in seconds)",
			"Finished", "RecordedDate", "ResponseId", "DistributionChannel", "UserLanguage",
		},
		TrailingColumns: []string{
			"Age", "Gender", "Education", "Platform_use", "Daily_use", "Consent",
		},
		BlockColumn: "video_id",
		LabelPrefix: "clip_",
	}
}

// BlockResult records how one block was reshaped.
type BlockResult struct {
	Block    Block
	Label    string
	Rows     int
	Fields   int
	Missing  []string
	Unmapped int
	Skipped  bool
}

// ReshapeResult is the long table plus per-block details.
type ReshapeResult struct {
	Table  *table.Table
	Blocks []BlockResult
}

// Emitted lists blocks that contributed at least one row.
func (r ReshapeResult) Emitted() []Block {
	var out []Block
	for _, b := range r.Blocks {
		if !b.Skipped && b.Rows > 0 {
			out = append(out, b.Block)
		}
	}
	return out
}

// Reshape turns a wide table into the long layout: one row per source row
// per block, block columns renamed through mapping. Blocks are stacked in
// the order given.
func Reshape(src *table.Table, blocks []Block, mapping FieldMapping, o ReshapeOptions, log observe.Logger) (ReshapeResult, error) {
	if log == nil {
		log = observe.Nop()
	}
	if o.BlockColumn == "" {
		return ReshapeResult{}, fmt.Errorf("reshape: block column name is required")
	}
	base := intersect(o.BaseColumns, src)
	trailing := intersect(o.TrailingColumns, src)
	for _, c := range append(append([]string(nil), base...), trailing...) {
		if _, ok := mapping.Suffix(c); ok || c == o.BlockColumn {
			return ReshapeResult{}, fmt.Errorf("reshape: column %q collides with an output field", c)
		}
	}

	res := ReshapeResult{}
	var parts []*table.Table
	seen := map[string]bool{}
	for _, b := range blocks {
		br := BlockResult{Block: b, Label: b.Label(o.LabelPrefix)}
		prefixed := 0
		for _, c := range src.Columns {
			if strings.HasPrefix(c, b.Prefix()) {
				prefixed++
			}
		}
		if prefixed == 0 {
			br.Skipped = true
			log.Warn("block has no columns; skipping", "block", br.Label)
			res.Blocks = append(res.Blocks, br)
			continue
		}

		cols := append([]string(nil), base...)
		rename := make(map[string]string, mapping.Len())
		for _, f := range mapping.Fields() {
			raw := b.Column(f.Suffix)
			if !src.Has(raw) {
				br.Missing = append(br.Missing, f.Canonical)
				log.Warn("canonical field not found in block", "block", br.Label, "field", f.Canonical, "expected", raw)
				continue
			}
			cols = append(cols, raw)
			rename[raw] = f.Canonical
			seen[f.Canonical] = true
		}
		br.Fields = len(rename)
		br.Unmapped = prefixed - br.Fields
		if br.Unmapped > 0 {
			log.Debug("block columns outside the field mapping dropped", "block", br.Label, "count", br.Unmapped)
		}
		cols = append(cols, trailing...)

		part, err := src.Select(cols, rename)
		if err != nil {
			return ReshapeResult{}, fmt.Errorf("reshape %s: %w", br.Label, err)
		}
		part, err = part.WithConstant(o.BlockColumn, br.Label)
		if err != nil {
			return ReshapeResult{}, fmt.Errorf("reshape %s: %w", br.Label, err)
		}
		br.Rows = part.Len()
		log.Debug("block reshaped", "block", br.Label, "rows", br.Rows, "fields", br.Fields)
		parts = append(parts, part)
		res.Blocks = append(res.Blocks, br)
	}

	layout := append([]string(nil), base...)
	for _, c := range mapping.Canonicals() {
		if seen[c] {
			layout = append(layout, c)
		}
	}
	layout = append(layout, trailing...)
	layout = append(layout, o.BlockColumn)
	// Zero-row parts add nothing, so an empty result keeps the layout and
	// still serializes with a header row.
	long, err := table.Concat(layout, parts...)
	if err != nil {
		return ReshapeResult{}, fmt.Errorf("reshape: %w", err)
	}
	res.Table = long
	if long.Len() == 0 {
		log.Error("no block produced any rows; long table is empty", "blocks", len(blocks), "columns", len(layout))
		return res, nil
	}
	log.Info("long table built", "rows", long.Len(), "columns", len(long.Columns), "blocks", len(res.Emitted()))
	return res, nil
}

func intersect(allow []string, t *table.Table) []string {
	var out []string
	for _, c := range allow {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

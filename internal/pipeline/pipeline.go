// Package pipeline reshapes a wide survey export (one row per participant)
// into a long table (one row per participant per video) in four strict
// stages: header inspection, row filtering, block reshaping and quality
// validation.
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/google/uuid"
)

// Options gathers the per-stage settings.
type Options struct {
	Read     table.ReadOptions
	Blocks   BlockPattern
	Filter   FilterOptions
	Reshape  ReshapeOptions
	Validate ValidateOptions
}

// DefaultOptions returns settings for the study's Qualtrics export.
func DefaultOptions() Options {
	return Options{
		Read:     table.ReadOptions{SkipRows: 1},
		Blocks:   BlockPattern{Marker: "Reso_clip", Reserved: []string{"_end"}},
		Filter:   DefaultFilterOptions(),
		Reshape:  DefaultReshapeOptions(),
		Validate: DefaultValidateOptions(),
	}
}

// Pipeline runs the stages for one configuration. It holds no per-run state.
type Pipeline struct {
	opt     Options
	mapping FieldMapping
	log     observe.Logger
}

// New binds options, the field mapping and a logger.
func New(opt Options, mapping FieldMapping, log observe.Logger) *Pipeline {
	if log == nil {
		log = observe.Nop()
	}
	return &Pipeline{opt: opt, mapping: mapping, log: log}
}

// Result is everything one run produced.
type Result struct {
	RunID   string
	Source  string
	Started time.Time
	Elapsed time.Duration
	Blocks  []Block
	Loaded  int
	Wide    *table.Table
	Filter  FilterResult
	Reshape ReshapeResult
	Long    *table.Table
	Report  Report
}

// Run executes all four stages over source. Only input errors are
// returned; structural problems are logged and data-quality findings end
// up in Result.Report.
func (p *Pipeline) Run(source string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Source: source, Started: time.Now()}
	log := p.log
	log.Info("run started", "run", res.RunID, "source", source)

	blocks, err := InspectFile(source, p.opt.Read.Delimiter, p.opt.Blocks, log)
	if err != nil {
		return nil, err
	}
	res.Blocks = blocks

	f, err := table.ReadFile(source, p.opt.Read)
	if err != nil {
		log.Error("load source failed", "path", source, "error", err)
		return nil, fmt.Errorf("load %s: %w", filepath.Base(source), err)
	}
	for name, orig := range f.Renamed {
		log.Warn("duplicate column renamed", "column", orig, "as", name)
	}
	if f.Ragged > 0 {
		log.Warn("rows with unexpected field count", "rows", f.Ragged)
	}
	res.Loaded = f.Table.Len()
	log.Info("source loaded", "rows", res.Loaded, "columns", len(f.Table.Columns))

	res.Filter = Filter(f.Table, p.opt.Filter, log)
	res.Wide = res.Filter.Table
	log.Info("filtering done", "kept", res.Wide.Len(), "removed", res.Filter.Removed())

	res.Reshape, err = Reshape(res.Wide, blocks, p.mapping, p.opt.Reshape, log)
	if err != nil {
		return nil, err
	}
	res.Long = res.Reshape.Table

	res.Report = Validate(res.Long, p.opt.Validate)
	for _, is := range res.Report.Issues {
		log.Warn("quality issue", "issue", is)
	}
	res.Elapsed = time.Since(res.Started)
	log.Info("run finished", "run", res.RunID, "long_rows", res.Long.Len(), "elapsed", res.Elapsed)
	return res, nil
}

// Artifacts are the files a run writes.
type Artifacts struct {
	Long   string
	Wide   string
	Report string
}

// List returns the artifact paths in write order.
func (a Artifacts) List() []string { return []string{a.Long, a.Wide, a.Report} }

// ArtifactPaths names the outputs for prefix inside dir.
func ArtifactPaths(dir, prefix string, delim rune) Artifacts {
	ext := table.Extension(delim)
	return Artifacts{
		Long:   filepath.Join(dir, prefix+"_long_format."+ext),
		Wide:   filepath.Join(dir, prefix+"_wide_format."+ext),
		Report: filepath.Join(dir, prefix+"_quality_report.txt"),
	}
}

// Save writes the long table, the filtered wide table and the quality
// report, creating dir when needed.
func (r *Result) Save(dir, prefix string, delim rune) (Artifacts, error) {
	a := ArtifactPaths(dir, prefix, delim)
	if err := utils.EnsureDir(dir); err != nil {
		return a, fmt.Errorf("create output dir: %w", err)
	}
	if err := table.WriteFile(a.Long, r.Long, delim); err != nil {
		return a, fmt.Errorf("write long table: %w", err)
	}
	if err := table.WriteFile(a.Wide, r.Wide, delim); err != nil {
		return a, fmt.Errorf("write wide table: %w", err)
	}
	if err := utils.SafeWriteFile(a.Report, []byte(r.Report.Text(r.RunID))); err != nil {
		return a, fmt.Errorf("write quality report: %w", err)
	}
	return a, nil
}

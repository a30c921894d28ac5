package export

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/vidnarr-cli/internal/pipeline"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vidnarr"

// RunRegistry returns a registry holding the gauges for one run.
func RunRegistry(res *pipeline.Result) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		g.Set(v)
		reg.MustRegister(g)
	}
	vec := func(name, help, label string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, []string{label})
		reg.MustRegister(g)
		return g
	}

	gauge("rows_loaded", "Session rows read from the source export.", float64(res.Loaded))
	gauge("rows_kept", "Session rows left after filtering.", float64(res.Wide.Len()))
	gauge("blocks_discovered", "Blocks found in the header.", float64(len(res.Blocks)))
	gauge("blocks_emitted", "Blocks that contributed rows to the long table.", float64(len(res.Reshape.Emitted())))
	gauge("long_rows", "Rows in the long table.", float64(res.Long.Len()))
	gauge("sessions", "Distinct sessions in the long table.", float64(res.Report.Sessions))
	gauge("quality_issues", "Quality issues reported.", float64(len(res.Report.Issues)))
	gauge("duplicate_pairs", "Session and block pairs seen on more than one row.", float64(res.Report.DuplicatePairs))
	gauge("run_duration_seconds", "Wall time of the run.", res.Elapsed.Seconds())
	gauge("last_run_timestamp_seconds", "Unix time the run started.", float64(res.Started.Unix()))

	removed := vec("rows_removed", "Rows removed by each filter rule.", "rule")
	skipped := vec("filter_rule_skipped", "1 when a filter rule was skipped for a missing column.", "rule")
	for _, s := range res.Filter.Steps {
		removed.WithLabelValues(s.Rule).Set(float64(s.Removed))
		v := 0.0
		if s.Skipped {
			v = 1
		}
		skipped.WithLabelValues(s.Rule).Set(v)
	}
	missing := vec("missing_values", "Missing cells per key column.", "column")
	for _, m := range res.Report.Missing {
		missing.WithLabelValues(m.Column).Set(float64(m.Count))
	}
	return reg
}

// WriteMetrics writes the run gauges in Prometheus text format to path,
// for pickup by a node exporter textfile collector.
func WriteMetrics(path string, res *pipeline.Result) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, RunRegistry(res)); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/export"
	"github.com/KaramelBytes/vidnarr-cli/internal/pipeline"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rsOutputDir   string
	rsPrefix      string
	rsFormat      string
	rsMinDuration float64
	rsMinBlocks   int
	rsSQLite      string
	rsSQLiteRepl  bool
	rsMetricsFile string
	rsS3Bucket    string
	rsS3Prefix    string
	rsQuiet       bool
)

var reshapeCmd = &cobra.Command{
	Use:   "reshape <raw-export>",
	Short: "Filter a wide survey export and write the long table, wide table and quality report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		f := cmd.Flags()
		if f.Changed("output") {
			cfg.Output.Dir = rsOutputDir
		}
		if f.Changed("prefix") {
			cfg.Output.Prefix = rsPrefix
		}
		if f.Changed("format") {
			if err := cfg.Set("output.format", rsFormat); err != nil {
				return err
			}
		}
		if f.Changed("min-duration") {
			if rsMinDuration < 0 {
				return fmt.Errorf("--min-duration must be >= 0")
			}
			cfg.Filter.MinDuration = rsMinDuration
		}
		if f.Changed("min-blocks") {
			if rsMinBlocks < 0 {
				return fmt.Errorf("--min-blocks must be >= 0")
			}
			cfg.Validate.MinBlocks = rsMinBlocks
		}
		if f.Changed("sqlite") {
			cfg.SQLite.Path = rsSQLite
		}
		if f.Changed("sqlite-replace") {
			cfg.SQLite.Replace = rsSQLiteRepl
		}
		if f.Changed("metrics-file") {
			cfg.Metrics.File = rsMetricsFile
		}
		if f.Changed("s3-bucket") {
			cfg.S3.Bucket = rsS3Bucket
		}
		if f.Changed("s3-prefix") {
			cfg.S3.Prefix = rsS3Prefix
		}
		for _, p := range []*string{&cfg.Output.Dir, &cfg.SQLite.Path, &cfg.Metrics.File} {
			expanded, err := utils.ExpandHome(*p)
			if err != nil {
				return err
			}
			*p = expanded
		}

		mapping, err := cfg.Mapping()
		if err != nil {
			return err
		}
		res, err := pipeline.New(cfg.PipelineOptions(), mapping, logger).Run(src)
		if err != nil {
			return err
		}
		art, err := res.Save(cfg.Output.Dir, cfg.Output.Prefix, cfg.OutputDelimiter())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if rsQuiet {
			out = io.Discard
		}
		printRunSummary(out, res)
		for _, p := range art.List() {
			fmt.Fprintf(out, "✓ Wrote %s\n", p)
		}
		published := art.List()

		if cfg.SQLite.Path != "" {
			o := export.SQLiteOptions{
				Table:   cfg.SQLite.Table,
				Indexes: []string{cfg.Filter.IDColumn, cfg.Reshape.BlockColumn},
				Replace: cfg.SQLite.Replace,
			}
			if res.Long.Len() == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: long table is empty; skipping SQLite export")
			} else if err := export.WriteSQLite(cfg.SQLite.Path, res.Long, res.RunID, o); err != nil {
				return err
			} else {
				fmt.Fprintf(out, "✓ Loaded %d rows into %s (%s)\n", res.Long.Len(), cfg.SQLite.Path, o.Table)
			}
		}
		if cfg.Metrics.File != "" {
			if err := export.WriteMetrics(cfg.Metrics.File, res); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote metrics to %s\n", cfg.Metrics.File)
			published = append(published, cfg.Metrics.File)
		}
		if cfg.S3.Bucket != "" {
			pub, err := export.NewPublisher(cmd.Context(), export.S3Config{
				Bucket:          cfg.S3.Bucket,
				Prefix:          cfg.S3.Prefix,
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				PathStyle:       cfg.S3.PathStyle,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
			}, logger)
			if err != nil {
				return err
			}
			keys, err := pub.Publish(cmd.Context(), res.RunID, published)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Uploaded %d files to s3://%s/%s\n", len(keys), cfg.S3.Bucket, pub.Key(res.RunID, ""))
		}
		for _, is := range res.Report.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", is)
		}
		return nil
	},
}

func printRunSummary(w io.Writer, res *pipeline.Result) {
	labels := make([]string, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		labels = append(labels, b.Label(cfg.Reshape.LabelPrefix))
	}
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "Blocks: %d (%s)\n", len(res.Blocks), strings.Join(labels, ", "))
	fmt.Fprintf(w, "Sessions loaded: %d\n", res.Loaded)
	for _, s := range res.Filter.Steps {
		if s.Skipped {
			fmt.Fprintf(w, "  %-16s skipped (missing %s)\n", s.Rule, strings.Join(s.Missing, ", "))
			continue
		}
		fmt.Fprintf(w, "  %-16s removed %d of %d\n", s.Rule, s.Removed, s.Before)
	}
	fmt.Fprintf(w, "Sessions kept: %d\n", res.Wide.Len())
	fmt.Fprintf(w, "Long rows: %d across %d blocks\n", res.Long.Len(), len(res.Reshape.Emitted()))
	fmt.Fprintf(w, "Quality issues: %d\n", len(res.Report.Issues))
}

func init() {
	rootCmd.AddCommand(reshapeCmd)
	reshapeCmd.Flags().StringVarP(&rsOutputDir, "output", "o", "", "output directory (default from config: processed)")
	reshapeCmd.Flags().StringVar(&rsPrefix, "prefix", "", "artifact file name prefix")
	reshapeCmd.Flags().StringVar(&rsFormat, "format", "", "output format: csv|tsv")
	reshapeCmd.Flags().Float64Var(&rsMinDuration, "min-duration", 0, "minimum session duration in seconds")
	reshapeCmd.Flags().IntVar(&rsMinBlocks, "min-blocks", 0, "minimum number of blocks expected in the long table")
	reshapeCmd.Flags().StringVar(&rsSQLite, "sqlite", "", "also load the long table into this SQLite database")
	reshapeCmd.Flags().BoolVar(&rsSQLiteRepl, "sqlite-replace", false, "drop the SQLite table before loading instead of appending")
	reshapeCmd.Flags().StringVar(&rsMetricsFile, "metrics-file", "", "write run metrics in Prometheus text format")
	reshapeCmd.Flags().StringVar(&rsS3Bucket, "s3-bucket", "", "upload artifacts to this S3 bucket")
	reshapeCmd.Flags().StringVar(&rsS3Prefix, "s3-prefix", "", "key prefix for S3 uploads")
	reshapeCmd.Flags().BoolVarP(&rsQuiet, "quiet", "q", false, "suppress the run summary")
}

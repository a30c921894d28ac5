package cmd

import (
	"fmt"

	"github.com/KaramelBytes/vidnarr-cli/internal/analysis"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutputPath string
	descKeyField   string
	descTop        int
)

var describeCmd = &cobra.Command{
	Use:   "describe <long-file>",
	Short: "Summarize participants, videos and response patterns of a long-format table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := analysis.DefaultOptions()
		opt.SessionColumn = cfg.Filter.IDColumn
		opt.BlockColumn = cfg.Reshape.BlockColumn
		opt.DurationColumn = cfg.Filter.DurationColumn
		if descKeyField != "" {
			opt.KeyField = descKeyField
		}
		if descTop > 0 {
			opt.TopValues = descTop
		}
		rep, err := analysis.DescribeFile(args[0], opt)
		if err != nil {
			return err
		}
		md := rep.Markdown()
		for _, w := range rep.Warnings {
			logger.Warn("describe", "warning", w)
		}
		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	describeCmd.Flags().StringVar(&descKeyField, "key-field", "", "field whose presence marks an answered row (default familiarity_plot)")
	describeCmd.Flags().IntVar(&descTop, "top", 0, "values listed per categorical field")
}

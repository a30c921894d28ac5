package cmd

import (
	"fmt"

	"github.com/KaramelBytes/vidnarr-cli/internal/pipeline"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	valOutputPath string
	valMinBlocks  int
	valStrict     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <long-file>",
	Short: "Run the data quality checks on an existing long-format table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := table.ReadFile(path, table.ReadOptions{})
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		o := cfg.PipelineOptions().Validate
		if cmd.Flags().Changed("min-blocks") {
			o.MinBlocks = valMinBlocks
		}
		rep := pipeline.Validate(f.Table, o)
		text := rep.Text("")
		if valOutputPath != "" {
			if err := utils.SafeWriteFile(valOutputPath, []byte(text)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote quality report to %s\n", valOutputPath)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), text)
		}
		if valStrict && len(rep.Issues) > 0 {
			return fmt.Errorf("%d quality issues found", len(rep.Issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&valOutputPath, "output", "o", "", "write the report to this path instead of stdout")
	validateCmd.Flags().IntVar(&valMinBlocks, "min-blocks", 0, "minimum number of blocks expected")
	validateCmd.Flags().BoolVar(&valStrict, "strict", false, "exit non-zero when any quality issue is found")
}

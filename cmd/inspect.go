package cmd

import (
	"fmt"

	"github.com/KaramelBytes/vidnarr-cli/internal/pipeline"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
	"github.com/KaramelBytes/vidnarr-cli/internal/utils"
	"github.com/spf13/cobra"
)

var inspectJSON bool

type blockInfo struct {
	Block   string   `json:"block"`
	Label   string   `json:"label"`
	Fields  int      `json:"fields"`
	Missing []string `json:"missing,omitempty"`
}

type inspectResult struct {
	Source  string      `json:"source"`
	Columns int         `json:"columns"`
	Marker  string      `json:"marker"`
	Blocks  []blockInfo `json:"blocks"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <raw-export>",
	Short: "List the video blocks found in a raw export's header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		opt := cfg.PipelineOptions()
		blocks, err := pipeline.InspectFile(src, opt.Read.Delimiter, opt.Blocks, logger)
		if err != nil {
			return err
		}
		header, err := table.ReadHeader(src, opt.Read.Delimiter)
		if err != nil {
			return err
		}
		mapping, err := cfg.Mapping()
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(header))
		for _, h := range header {
			present[h] = true
		}
		res := inspectResult{Source: src, Columns: len(header), Marker: opt.Blocks.Marker}
		for _, b := range blocks {
			bi := blockInfo{Block: string(b), Label: b.Label(opt.Reshape.LabelPrefix)}
			for _, f := range mapping.Fields() {
				if present[b.Column(f.Suffix)] {
					bi.Fields++
				} else {
					bi.Missing = append(bi.Missing, f.Canonical)
				}
			}
			res.Blocks = append(res.Blocks, bi)
		}

		out := cmd.OutOrStdout()
		if inspectJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(res.Blocks) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: no columns match marker %q\n", opt.Blocks.Marker)
			return nil
		}
		fmt.Fprintf(out, "%d blocks in %s (%d columns)\n", len(res.Blocks), src, res.Columns)
		for _, bi := range res.Blocks {
			fmt.Fprintf(out, "  %-10s %d/%d fields\n", bi.Label, bi.Fields, mapping.Len())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the result as JSON")
}

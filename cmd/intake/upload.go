package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-intake/internal/ingest"
)

var ingestOpts ingest.Options

var uploadCmd = &cobra.Command{
	Use:   "upload <file-or-dir>",
	Short: "Stage every invoice file under a path for review",
	Example: `  intake upload ./inbox --skip-hidden
  intake upload scan.pdf --layout Acme --cost-center CC-12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cliContext(cmd.Context())
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		results, stats, err := ingest.Directory(ctx, a.Uploads, args[0], ingestOpts, logger)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Stats   ingest.DirStats     `json:"stats"`
			Results []ingest.FileResult `json:"results"`
		}{stats, results})
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVarP(&ingestOpts.Layout, "layout", "l", "", "layout name or id (default: the AT code path)")
	uploadCmd.Flags().StringVar(&ingestOpts.Comment, "comment", "", "comment stored with every document")
	uploadCmd.Flags().StringVar(&ingestOpts.CostCenter, "cost-center", "", "cost center stored with every document")
	uploadCmd.Flags().BoolVar(&ingestOpts.SkipHidden, "skip-hidden", true, "skip dot files and dot directories")
}

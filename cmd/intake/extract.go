package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var extractLayout string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract invoice metadata from one file without staging it",
	Example: `  intake extract invoice.pdf
  intake extract scan.jpg --layout Acme`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		res, err := a.Orchestrator.Extract(cmd.Context(), filepath.Base(args[0]), content, extractLayout)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Manage OCR extraction layouts",
}

var layoutsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create or update layouts from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ctx := cliContext(cmd.Context())
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		imported, err := a.Layouts.Import(ctx, data)
		if err != nil {
			return err
		}
		for _, l := range imported {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d rules\n", l.ID, l.Name, len(l.Fields))
		}
		return nil
	},
}

var layoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored layouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		list, err := a.Layouts.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, l := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d rules\n", l.ID, l.Name, l.Language, len(l.Fields))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd, layoutsCmd)
	layoutsCmd.AddCommand(layoutsImportCmd, layoutsListCmd)
	extractCmd.Flags().StringVarP(&extractLayout, "layout", "l", "", "layout name or id (default: the AT code path)")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

var version = "dev"

var (
	cfg     *common.Config
	logger  *slog.Logger
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Invoice intake: extract, stage, review and commit invoices",
	Long: `intake reads invoices from PDFs and images, either from the AT QR code
printed on Portuguese invoices or by OCR with a per-supplier layout, stages
the results for review and commits them with duplicate detection.

Configuration comes from the environment, optionally seeded from a .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if envFile != "" {
			common.LoadDotEnv(envFile)
		} else {
			common.LoadDotEnv()
		}
		cfg = common.LoadConfig()
		logger = common.NewLogger(os.Stderr, cfg.Server.PlainLogs, cfg.Server.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this .env file (default ./.env)")
}

// openApp validates the configuration and wires the services over the store.
func openApp(ctx context.Context) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logger)
}

// cliContext carries the invoking OS user as the caller identity.
func cliContext(ctx context.Context) context.Context {
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	return common.WithIdentity(ctx, common.Identity{Username: user})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

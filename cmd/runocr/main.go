package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/app"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/layout"
)

// runocr extracts one file with layouts read from a YAML file, without a database.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	layoutsFile := flag.String("layouts", "", "YAML file with one layout or a layouts list")
	layoutName := flag.String("layout", "", "layout to apply (default: the AT code path)")
	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-layouts file.yaml -layout name] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	var layouts app.StaticLayouts
	if *layoutsFile != "" {
		parsed, err := layout.LoadFile(*layoutsFile)
		if err != nil {
			logger.Error("invalid layouts file", "path", *layoutsFile, "error", err)
			os.Exit(2)
		}
		layouts = parsed
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := common.LoadConfig()
	orch := app.NewOrchestrator(cfg, layouts, nil, logger)

	start := time.Now()
	res, err := orch.Extract(ctx, filepath.Base(path), content, *layoutName)
	dur := time.Since(start)
	if err != nil {
		logger.Error("extraction failed", "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("extraction OK",
		"layout", res.Layout,
		"code_path", res.CodePath,
		"records", len(res.Records),
		"duration_ms", dur.Milliseconds(),
	)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

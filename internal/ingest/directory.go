// Package ingest feeds files from disk into the upload workflow.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/services/upload"
)

// Uploader stages one file.
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// Options apply to every file of a directory run.
type Options struct {
	Layout     string
	Comment    string
	CostCenter string
	SkipHidden bool
}

type FileResult struct {
	Path      string   `json:"path"`
	BatchID   string   `json:"batchId,omitempty"`
	Documents int      `json:"documents"`
	Warnings  []string `json:"warnings,omitempty"`
	Err       string   `json:"error,omitempty"`
}

type DirStats struct {
	Scanned   uint32 `json:"scanned"`
	Matched   uint32 `json:"matched"`
	Succeeded uint32 `json:"succeeded"`
	Failed    uint32 `json:"failed"`
}

// Directory walks root (a file or a directory), uploads every file with an
// allowed extension and returns per-file results plus aggregate stats. A
// failing file is recorded and the walk continues.
func Directory(ctx context.Context, up Uploader, root string, opts Options, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res := uploadFile(ctx, up, path, opts)
		if res.Err != "" {
			logger.Warn("ingest.file_failed", "path", path, "error", res.Err)
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func uploadFile(ctx context.Context, up Uploader, path string, opts Options) FileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err.Error()}
	}
	res, err := up.Upload(ctx, upload.Request{
		Filename:   filepath.Base(path),
		Content:    content,
		Layout:     opts.Layout,
		Comment:    opts.Comment,
		CostCenter: opts.CostCenter,
	})
	if err != nil {
		return FileResult{Path: path, Err: err.Error()}
	}
	return FileResult{Path: path, BatchID: res.BatchID, Documents: len(res.Documents), Warnings: res.Errors}
}

// AllowedExt reports whether ext (with or without the dot) is an accepted upload type.
func AllowedExt(ext string) bool {
	_, ok := constants.TypeForExt(ext)
	return ok
}

// IsHidden reports whether the base name starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

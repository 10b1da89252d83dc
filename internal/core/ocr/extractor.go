// Package ocr acquires text from invoice documents: embedded PDF text, and
// tesseract OCR for raster images and scanned PDFs.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	DefaultLang string // default "eng"
	DPI         int    // rasterization DPI, default 300
	MaxPages    int    // 0 = no limit
	TessdataDir string

	PSM int // 6: single uniform block of text
	OEM int // 3: default engine (LSTM when available)

	ScratchDir string // temp files for the external binaries; "" = os.TempDir()
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	return NewExtractorWithRunner(cfg, ExecRunner{Logger: logger}, logger)
}

// NewExtractorWithRunner is NewExtractor with an injected command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// ImageText runs tesseract over an encoded image and returns the flattened text.
// An empty lang uses the configured default.
func (e *Extractor) ImageText(ctx context.Context, img []byte, lang string) (string, error) {
	if lang == "" {
		lang = e.cfg.DefaultLang
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, img, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	txt := Flatten(Normalize(string(out)))
	e.logger.Debug("ocr.image.ok", "lang", lang, "chars", len(txt))
	return txt, nil
}

// PDFText returns the embedded text of a PDF. When the document has none it
// falls back to pdftotext, then to OCR of the rasterized pages.
func (e *Extractor) PDFText(ctx context.Context, doc []byte, lang string) (string, error) {
	txt, err := embeddedText(doc)
	if err != nil {
		e.logger.Warn("ocr.pdf.embedded_failed", "error", err)
	}
	if strings.TrimSpace(txt) != "" {
		return Normalize(txt), nil
	}

	txt, err = e.pdftotext(ctx, doc)
	if err != nil {
		e.logger.Warn("ocr.pdf.pdftotext_failed", "error", err)
	} else if strings.TrimSpace(txt) != "" {
		return Normalize(txt), nil
	}

	e.logger.Info("ocr.pdf.scanned", "hint", "no embedded text, running OCR on pages")
	pages, err := e.rasterize(ctx, doc, "png")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, p := range pages {
		t, err := e.ImageText(ctx, p, lang)
		if err != nil {
			e.logger.Warn("ocr.pdf.page_failed", "page", i+1, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(t)
	}
	return b.String(), nil
}

// RasterizePDF renders every page at the configured DPI.
func (e *Extractor) RasterizePDF(ctx context.Context, doc []byte) ([]image.Image, error) {
	pages, err := e.rasterize(ctx, doc, "png")
	if err != nil {
		return nil, err
	}
	out := make([]image.Image, 0, len(pages))
	for i, p := range pages {
		img, err := png.Decode(bytes.NewReader(p))
		if err != nil {
			e.logger.Warn("ocr.pdf.page_decode_failed", "page", i+1, "error", err)
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

// DecodeImage decodes a PNG or JPEG upload.
func DecodeImage(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

func embeddedText(doc []byte) (txt string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", err
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (e *Extractor) scratch(doc []byte) (dir, path string, err error) {
	dir, err = os.MkdirTemp(e.cfg.ScratchDir, "intake-pdf-*")
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	return dir, path, nil
}

func (e *Extractor) removeScratch(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove scratch dir", "dir", dir, "error", err)
	}
}

func (e *Extractor) pdftotext(ctx context.Context, doc []byte) (string, error) {
	dir, in, err := e.scratch(doc)
	if err != nil {
		return "", err
	}
	defer e.removeScratch(dir)

	// pdftotext -layout -enc UTF-8 -eol unix <in> -
	out, errb, err := e.runner.Run(ctx, nil, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", in, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// rasterize renders pages with pdftoppm and returns the encoded page images in order.
func (e *Extractor) rasterize(ctx context.Context, doc []byte, format string) ([][]byte, error) {
	dir, in, err := e.scratch(doc)
	if err != nil {
		return nil, err
	}
	defer e.removeScratch(dir)

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png <in.pdf> <dir/page>
	_, errb, err := e.runner.Run(ctx, nil, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-"+format, in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*." + format)
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages")
	}

	pages := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		pages = append(pages, b)
	}
	return pages, nil
}

// pageNumber extracts N from ".../page-N.png"; pdftoppm zero-pads inconsistently across versions.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
	return n
}

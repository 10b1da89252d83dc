// Package extraction turns one uploaded file into invoice metadata records,
// either by decoding the QR codes printed on it or by OCR plus layout rules.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/atcode"
	"github.com/joseph-ayodele/invoice-intake/internal/core/layout"
	"github.com/joseph-ayodele/invoice-intake/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/core/qrcode"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// TextSource reads text and rasters out of documents.
type TextSource interface {
	ImageText(ctx context.Context, img []byte, lang string) (string, error)
	PDFText(ctx context.Context, doc []byte, lang string) (string, error)
	RasterizePDF(ctx context.Context, doc []byte) ([]image.Image, error)
}

// CodeDecoder finds QR payloads on a page.
type CodeDecoder interface {
	Decode(ctx context.Context, page qrcode.Page) []string
}

// Layouts resolves a layout by name or id.
type Layouts interface {
	Resolve(ctx context.Context, nameOrID string) (*entity.Layout, error)
}

// Record is one extracted invoice. Extracted is false when nothing usable was
// read and Metadata holds the default value.
type Record struct {
	Metadata  entity.InvoiceMetadata `json:"metadata"`
	Extracted bool                   `json:"extracted"`
}

// Result is the outcome for one file.
type Result struct {
	Filename string             `json:"filename"`
	FileType constants.FileType `json:"fileType"`
	Layout   string             `json:"layout"`
	CodePath bool               `json:"codePath"`
	Records  []Record           `json:"records"`
}

// Orchestrator picks the extraction path for each file and always yields at
// least one record. Only unreadable input and layout lookup faults are errors.
type Orchestrator struct {
	text          TextSource
	codes         CodeDecoder
	layouts       Layouts
	evaluator     *layout.Evaluator
	names         layout.CompanyNames
	defaultLayout string
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Orchestrator)

// WithDefaultLayout sets the layout name that selects the code path.
func WithDefaultLayout(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.defaultLayout = name
		}
	}
}

// WithCompanyNames enables company-name enrichment on the code path.
func WithCompanyNames(names layout.CompanyNames) Option {
	return func(o *Orchestrator) { o.names = names }
}

func NewOrchestrator(text TextSource, codes CodeDecoder, layouts Layouts, evaluator *layout.Evaluator, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		text:          text,
		codes:         codes,
		layouts:       layouts,
		evaluator:     evaluator,
		defaultLayout: constants.DefaultLayoutName,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultLayout returns the layout name that selects the code path.
func (o *Orchestrator) DefaultLayout() string { return o.defaultLayout }

// Extract reads content according to layoutName.
func (o *Orchestrator) Extract(ctx context.Context, filename string, content []byte, layoutName string) (*Result, error) {
	ft, err := Classify(filename)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, common.InputError("could not read file %q", filename)
	}

	res := &Result{Filename: filename, FileType: ft}
	start := time.Now()

	if UsesCodePath(layoutName, o.defaultLayout) {
		res.CodePath = true
		res.Layout = o.defaultLayout
		res.Records = o.fromCodes(ctx, filename, ft, content)
	} else {
		l, err := o.layouts.Resolve(ctx, layoutName)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.InputError("unknown layout %q", layoutName)
			}
			return nil, err
		}
		res.Layout = l.Name
		res.Records = []Record{o.fromText(ctx, filename, ft, content, l)}
	}

	o.logger.Info("extract.done",
		"file", filename,
		"type", ft,
		"layout", res.Layout,
		"code_path", res.CodePath,
		"records", len(res.Records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) fromCodes(ctx context.Context, filename string, ft constants.FileType, content []byte) []Record {
	pages, err := o.pages(ctx, filename, ft, content)
	if err != nil {
		o.logger.Warn("extract.code.pages_failed", "file", filename, "error", err)
	}

	var records []Record
	for _, p := range pages {
		for _, text := range o.codes.Decode(ctx, p) {
			records = append(records, o.fromPayload(ctx, filename, text))
		}
	}
	if len(records) == 0 {
		o.logger.Warn("extract.code.none", "file", filename, "pages", len(pages))
		return []Record{o.empty(filename)}
	}
	return records
}

func (o *Orchestrator) pages(ctx context.Context, filename string, ft constants.FileType, content []byte) ([]qrcode.Page, error) {
	if ft == constants.FileTypeImage {
		img, err := ocr.DecodeImage(content)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return []qrcode.Page{{Name: filename, Image: img, Raw: content}}, nil
	}
	imgs, err := o.text.RasterizePDF(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	pages := make([]qrcode.Page, 0, len(imgs))
	for i, img := range imgs {
		pages = append(pages, qrcode.Page{Name: fmt.Sprintf("%s#%d", filename, i+1), Image: img})
	}
	return pages, nil
}

// fromPayload maps one decoded code. Codes outside the tax-authority scheme
// still produce a record, holding the default metadata.
func (o *Orchestrator) fromPayload(ctx context.Context, filename, text string) Record {
	p := atcode.Parse(text)
	if !p.IsInvoice() {
		o.logger.Warn("extract.code.foreign", "file", filename)
		return Record{Metadata: entity.DefaultMetadata(filename, o.now()), Extracted: true}
	}
	md := p.ToMetadata(o.logger)
	if md.IssuerVATNumber != "" && md.CompanyName == "" && o.names != nil {
		md.CompanyName = o.names.CompanyName(ctx, md.IssuerVATNumber)
	}
	md.OriginalFileName = filename
	o.logger.Info("extract.code.ok", "file", filename, "invoice_number", md.InvoiceNumber)
	return Record{Metadata: md, Extracted: true}
}

func (o *Orchestrator) fromText(ctx context.Context, filename string, ft constants.FileType, content []byte, l *entity.Layout) Record {
	compiled, warnings, err := layout.Compile(*l)
	for _, w := range warnings {
		o.logger.Warn("extract.ocr.layout_warning", "layout", l.Name, "warning", w)
	}
	if err != nil {
		o.logger.Error("failed to compile layout", "layout", l.Name, "error", err)
		return o.empty(filename)
	}

	var text string
	if ft == constants.FileTypePDF {
		text, err = o.text.PDFText(ctx, content, l.Language)
	} else {
		text, err = o.text.ImageText(ctx, content, l.Language)
	}
	if err != nil {
		o.logger.Error("failed to read document text", "file", filename, "layout", l.Name, "error", err)
		return o.empty(filename)
	}

	md := o.evaluator.Extract(ctx, compiled, text, filename)
	extracted := md.InvoiceNumber != "" || md.IssuerVATNumber != "" || md.Total != "" || len(md.Items) > 0
	o.logger.Info("extract.ocr.ok", "file", filename, "layout", l.Name, "chars", len(text), "extracted", extracted)
	return Record{Metadata: md, Extracted: extracted}
}

func (o *Orchestrator) empty(filename string) Record {
	return Record{Metadata: entity.DefaultMetadata(filename, o.now())}
}

// Package app assembles the intake components from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/async"
	"github.com/joseph-ayodele/invoice-intake/internal/core/batch"
	"github.com/joseph-ayodele/invoice-intake/internal/core/commit"
	"github.com/joseph-ayodele/invoice-intake/internal/core/extraction"
	"github.com/joseph-ayodele/invoice-intake/internal/core/layout"
	"github.com/joseph-ayodele/invoice-intake/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-intake/internal/core/qrcode"
	"github.com/joseph-ayodele/invoice-intake/internal/core/vat"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
	"github.com/joseph-ayodele/invoice-intake/internal/server"
	"github.com/joseph-ayodele/invoice-intake/internal/services/invoices"
	"github.com/joseph-ayodele/invoice-intake/internal/services/layouts"
	"github.com/joseph-ayodele/invoice-intake/internal/services/upload"
)

// App holds every wired component of one process.
type App struct {
	Config *common.Config
	DB     *repository.DB
	Logger *slog.Logger

	Audit        *audit.Sink
	Orchestrator *extraction.Orchestrator
	Workflow     *batch.Workflow
	Pipeline     *commit.Pipeline
	Uploads      *upload.Service
	Invoices     *invoices.Service
	Layouts      *layouts.Service
	Export       *export.Service
}

// DatabaseConfig converts the environment settings into repository settings.
func DatabaseConfig(cfg *common.Config) repository.Config {
	return repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
}

// Open connects to the store, pings it and wires the services on top.
func Open(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.Connect(ctx, DatabaseConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := repository.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		repository.Close(db, logger)
		return nil, err
	}
	return Wire(cfg, db, logger), nil
}

// Wire builds the components over an open store.
func Wire(cfg *common.Config, db *repository.DB, logger *slog.Logger) *App {
	batches := repository.NewBatchRepository(db, logger)
	staged := repository.NewStagedDocumentRepository(db, logger)
	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	layoutRepo := repository.NewLayoutRepository(db, logger)

	sink := audit.NewSink(repository.NewAuditRepository(db, logger), logger,
		async.WithWorkers(1),
		async.WithQueueSize(cfg.Server.AuditQueue),
		async.WithProcessTimeout(10*time.Second),
	)

	orch := NewOrchestrator(cfg, layoutRepo, invoiceRepo, logger)
	wf := batch.NewWorkflow(db, batches, staged, cfg.Batch.TTL, logger)
	pipe := commit.NewPipeline(db, invoiceRepo, staged, wf, sink, logger)
	runner := async.NewRunner(cfg.Upload.Budget, cfg.Upload.Margin, logger)

	return &App{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Audit:        sink,
		Orchestrator: orch,
		Workflow:     wf,
		Pipeline:     pipe,
		Uploads:      upload.NewService(orch, wf, db, runner, sink, logger),
		Invoices:     invoices.NewService(invoiceRepo, sink, logger),
		Layouts:      layouts.NewService(layoutRepo, sink, logger),
		Export:       export.NewService(invoiceRepo, sink, logger),
	}
}

// NewOrchestrator wires OCR, code decoding and company-name enrichment.
// history may be nil when no store is available.
func NewOrchestrator(cfg *common.Config, layoutsRepo extraction.Layouts, history vat.History, logger *slog.Logger) *extraction.Orchestrator {
	text := ocr.NewExtractor(ocr.Config{
		Pdftotext:   cfg.OCR.Pdftotext,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		DPI:         cfg.OCR.DPI,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		ScratchDir:  cfg.OCR.ScratchDir,
	}, logger)

	var fallback qrcode.Fallback
	if cfg.Decoder.URL != "" {
		fallback = qrcode.NewRemoteDecoder(qrcode.RemoteConfig{
			BaseURL:   cfg.Decoder.URL,
			Timeout:   cfg.Decoder.Timeout,
			RatePerS:  cfg.Decoder.RatePerS,
			RateBurst: cfg.Decoder.RateBurst,
		}, logger)
	}
	codes := qrcode.NewDecoder(qrcode.NewZXingReader(), fallback, logger)

	var registry vat.Registry
	if cfg.VATRegistry.Enabled && cfg.VATRegistry.URL != "" {
		registry = vat.NewVIESClient(cfg.VATRegistry.URL, cfg.VATRegistry.Timeout, logger)
	}
	names := vat.NewResolver(registry, history, "", logger)

	evaluator := layout.NewEvaluator(layout.NewDateParser(layout.LocalesFor(cfg.Layouts.DateLocales)), names, logger)
	return extraction.NewOrchestrator(text, codes, layoutsRepo, evaluator, logger,
		extraction.WithDefaultLayout(cfg.Layouts.DefaultName),
		extraction.WithCompanyNames(names),
	)
}

// Handler returns the HTTP handler over the wired services.
func (a *App) Handler() *server.Handler {
	return server.NewHandler(server.Deps{
		Uploads:  a.Uploads,
		Workflow: a.Workflow,
		Pipeline: a.Pipeline,
		Invoices: a.Invoices,
		Layouts:  a.Layouts,
		Export:   a.Export,
		Ping:     a.Ping,
	}, a.Config.Server.MaxUpload, a.Logger)
}

// Ping checks store connectivity.
func (a *App) Ping(ctx context.Context) error {
	return repository.HealthCheck(ctx, a.DB, 3*time.Second, a.Logger)
}

// Close drains the audit queue and closes the store.
func (a *App) Close(ctx context.Context) {
	a.Audit.Close(ctx)
	repository.Close(a.DB, a.Logger)
}

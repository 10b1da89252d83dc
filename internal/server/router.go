// Package server exposes the intake workflow over HTTP and the gRPC health protocol.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/invoice-intake/internal/core/batch"
	"github.com/joseph-ayodele/invoice-intake/internal/core/commit"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/services/invoices"
	"github.com/joseph-ayodele/invoice-intake/internal/services/layouts"
	"github.com/joseph-ayodele/invoice-intake/internal/services/upload"
)

// DefaultMaxUpload caps multipart bodies when no limit is configured.
const DefaultMaxUpload int64 = 20 << 20

// Deps are the services the HTTP surface dispatches to.
type Deps struct {
	Uploads  *upload.Service
	Workflow *batch.Workflow
	Pipeline *commit.Pipeline
	Invoices *invoices.Service
	Layouts  *layouts.Service
	Export   *export.Service
	// Ping reports store health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

type Handler struct {
	deps      Deps
	maxUpload int64
	logger    *slog.Logger
}

func NewHandler(deps Deps, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{deps: deps, maxUpload: maxUpload, logger: logger}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(h.recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", h.upload)

		r.Get("/batches/{id}", h.getBatch)
		r.Post("/batches/{id}/save", h.saveBatch)

		r.Delete("/staged", h.deleteStaged)
		r.Get("/staged/{id}", h.getStaged)
		r.Put("/staged/{id}", h.editStaged)

		r.Post("/commit", h.commit)

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.listInvoices)
			r.Post("/manual", h.manualInvoice)
			r.Get("/export", h.exportInvoices)
			r.Get("/{id}", h.getInvoice)
			r.Put("/{id}/metadata", h.editInvoice)
			r.Delete("/{id}", h.deleteInvoice)
		})

		r.Route("/layouts", func(r chi.Router) {
			r.Get("/", h.listLayouts)
			r.Post("/", h.createLayout)
			r.Post("/import", h.importLayouts)
			r.Get("/{id}", h.getLayout)
			r.Put("/{id}", h.updateLayout)
			r.Delete("/{id}", h.deleteLayout)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ping != nil {
		if err := h.deps.Ping(r.Context()); err != nil {
			h.logger.Warn("health.store_down", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

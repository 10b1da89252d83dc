package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// Headers carrying the caller identity. Authentication happens upstream.
const (
	headerUser     = "X-User"
	headerUserName = "X-User-Name"
	headerEmail    = "X-User-Email"
)

// requestContext moves the request id and caller identity into the context
// the services read them from.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)
		w.Header().Set(middleware.RequestIDHeader, reqID)
		ctx = common.WithRequestID(ctx, reqID)
		ctx = common.WithIdentity(ctx, common.Identity{
			Username: strings.TrimSpace(r.Header.Get(headerUser)),
			FullName: strings.TrimSpace(r.Header.Get(headerUserName)),
			Email:    strings.TrimSpace(r.Header.Get(headerEmail)),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("http.panic", "path", r.URL.Path, "panic", rec, "request_id", middleware.GetReqID(r.Context()))
				writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"user", common.IdentityFromContext(r.Context()).Name(),
		)
	})
}

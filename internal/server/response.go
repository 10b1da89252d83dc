package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

type apiError struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, apiError{
		Status:    "error",
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// fail maps err onto the HTTP error taxonomy. Internal details never reach the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("http.failed", "path", r.URL.Path, "status", status, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, r, status, code, msg)
}

// mapError translates the error's status code into an HTTP response.
func mapError(err error) (int, string, string) {
	switch common.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_INPUT", message(err)
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", message(err)
	case codes.AlreadyExists:
		return http.StatusConflict, "CONFLICT", message(err)
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "TIMEOUT", "request did not finish in time"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "store unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func message(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.InputError("invalid json body: %v", err)
	}
	return nil
}

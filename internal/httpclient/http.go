// Package httpclient holds the small request helpers shared by the outbound
// collaborators (remote QR decoder, VAT registry).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.StatusCode)
}

// ClientError reports a 4xx response.
func (e *StatusError) ClientError() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }

// ServerError reports a 5xx response.
func (e *StatusError) ServerError() bool { return e.StatusCode >= 500 }

// SendJSON posts body as JSON to url and returns the raw response body.
func SendJSON(ctx context.Context, client *http.Client, service, url string, body any, logger *slog.Logger) ([]byte, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(client, service, req, len(bs), logger)
}

// SendFile posts data as a multipart upload under field, with the given file name.
func SendFile(ctx context.Context, client *http.Client, service, url, field, filename string, data []byte, logger *slog.Logger) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(client, service, req, buf.Len(), logger)
}

func do(client *http.Client, service string, req *http.Request, size int, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	reqID := uuid.New().String()
	start := time.Now()

	logger.Info("http.request", "service", service, "req_id", reqID, "url", req.URL.String(), "content_length", size)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("http.send_error", "service", service, "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("http.response_body_close_error", "service", service, "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	logger.Info("http.response",
		"service", service,
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}
	return raw, nil
}

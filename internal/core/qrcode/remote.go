package qrcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/invoice-intake/internal/httpclient"
)

var (
	// ErrNoContent means the remote decoder answered 4xx: nothing readable in the image.
	ErrNoContent = errors.New("decoder found no content")
	// ErrUnavailable means the remote decoder answered 5xx or could not be reached.
	ErrUnavailable = errors.New("decoder unavailable")
)

type RemoteConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RatePerS  float64
	RateBurst int
}

// RemoteDecoder calls the external decode service: a multipart POST of the
// image to {base}/decode answered by a list of {type, data} detections.
type RemoteDecoder struct {
	url     string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRemoteDecoder(cfg RemoteConfig, logger *slog.Logger) *RemoteDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerS > 0 {
		limit = rate.Limit(cfg.RatePerS)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &RemoteDecoder{
		url:     strings.TrimRight(cfg.BaseURL, "/") + "/decode",
		timeout: cfg.Timeout,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, cfg.RateBurst),
		logger:  logger,
	}
}

type detection struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Decode returns every QRCODE detection in answer order. Other symbologies
// are skipped, so an answer without a QR code yields (nil, nil).
func (d *RemoteDecoder) Decode(ctx context.Context, filename string, image []byte) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw, err := httpclient.SendFile(ctx, d.client, "decoder", d.url, "image", filename, image, d.logger)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.ClientError() {
			return nil, fmt.Errorf("%w: status %d", ErrNoContent, se.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var found []detection
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	var texts []string
	for _, f := range found {
		if f.Type == "QRCODE" {
			texts = append(texts, f.Data)
		}
	}
	return texts, nil
}

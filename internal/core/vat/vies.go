// Package vat resolves company names from VAT numbers through the EU VIES
// registry, falling back to names already stored with earlier invoices.
package vat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/httpclient"
)

// ErrNotRegistered means the registry answered but does not know the number.
var ErrNotRegistered = errors.New("vat number not registered")

// Result is the registry answer for one VAT number.
type Result struct {
	Valid       bool
	CompanyName string
	Address     string
}

// Registry looks a VAT number up.
type Registry interface {
	Check(ctx context.Context, countryCode, vatNumber string) (Result, error)
}

// VIESClient talks to the VIES REST API (POST {base}/check-vat-number).
type VIESClient struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewVIESClient(baseURL string, timeout time.Duration, logger *slog.Logger) *VIESClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VIESClient{
		url:     strings.TrimRight(baseURL, "/") + "/check-vat-number",
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

type viesRequest struct {
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber"`
}

type viesResponse struct {
	Valid   bool   `json:"valid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (c *VIESClient) Check(ctx context.Context, countryCode, vatNumber string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := httpclient.SendJSON(ctx, c.client, "vies", c.url, viesRequest{CountryCode: countryCode, VATNumber: vatNumber}, c.logger)
	if err != nil {
		return Result{}, fmt.Errorf("vies check: %w", err)
	}
	var resp viesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("vies decode: %w", err)
	}
	// VIES masks unknown fields with "---".
	name := strings.TrimSpace(resp.Name)
	if name == "---" {
		name = ""
	}
	if !resp.Valid {
		return Result{}, ErrNotRegistered
	}
	return Result{Valid: true, CompanyName: name, Address: strings.TrimSpace(resp.Address)}, nil
}

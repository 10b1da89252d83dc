package vat

import (
	"context"
	"log/slog"
	"strings"
)

// History returns the latest stored company name for a VAT number, or "".
type History interface {
	LatestCompanyName(ctx context.Context, issuerVAT string) (string, error)
}

// Resolver finds a company name for an issuer VAT number. The registry is
// asked first; when it fails or has no name, stored invoices are consulted.
// Failures are logged and yield "".
type Resolver struct {
	registry    Registry
	history     History
	countryCode string
	logger      *slog.Logger
}

// NewResolver wires the lookups. registry may be nil when the registry is disabled.
func NewResolver(registry Registry, history History, countryCode string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if countryCode == "" {
		countryCode = "PT"
	}
	return &Resolver{registry: registry, history: history, countryCode: countryCode, logger: logger}
}

func (r *Resolver) CompanyName(ctx context.Context, vat string) string {
	number := strings.TrimPrefix(strings.TrimSpace(vat), r.countryCode)
	if number == "" {
		return ""
	}

	if r.registry != nil {
		res, err := r.registry.Check(ctx, r.countryCode, number)
		if err == nil && res.CompanyName != "" {
			r.logger.Info("vat.registry_hit", "vat", number)
			return res.CompanyName
		}
		r.logger.Warn("vat.registry_miss", "vat", number, "error", err)
	}

	if r.history == nil {
		return ""
	}
	name, err := r.history.LatestCompanyName(ctx, number)
	if err != nil {
		r.logger.Error("failed to look up stored company name", "vat", number, "error", err)
		return ""
	}
	if name == "" {
		r.logger.Warn("vat.no_company_name", "vat", number)
	}
	return name
}

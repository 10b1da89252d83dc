package invoices

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// RecentLimit is how many invoices ListRecent returns.
const RecentLimit = 20

// Service handles committed invoice business logic.
type Service struct {
	repo   repository.InvoiceRepository
	audit  audit.Recorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new invoice service.
func NewService(repo repository.InvoiceRepository, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: recorder, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InputError("invoice id is required")
	}
	return s.repo.Get(ctx, id)
}

// ListRecent returns the newest invoices.
func (s *Service) ListRecent(ctx context.Context) ([]entity.Invoice, error) {
	return s.List(ctx, repository.InvoiceFilter{Limit: RecentLimit})
}

// List returns invoices matching f, newest first.
func (s *Service) List(ctx context.Context, f repository.InvoiceFilter) ([]entity.Invoice, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, common.InputError("from must be before to")
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("invoices listed", "count", len(list))
	return list, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// EditMetadata replaces the metadata of a committed invoice and records the
// before and after states.
func (s *Service) EditMetadata(ctx context.Context, id string, md entity.InvoiceMetadata) (*entity.Invoice, error) {
	validator := common.NewValidator()
	validator.Field("id", id, common.Required)
	validator.Field("issuerVATNumber", md.IssuerVATNumber, common.VATNumber)
	validator.Field("acquirerVATNumber", md.AcquirerVATNumber, common.VATNumber)
	if err := common.ValidateAndReturnInputError(validator); err != nil {
		return nil, err
	}

	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	if md.OriginalFileName == "" {
		md.OriginalFileName = before.Metadata.OriginalFileName
	}
	if err := s.repo.UpdateMetadata(ctx, id, md, s.now()); err != nil {
		return nil, err
	}
	after, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, constants.AuditInvoiceUpdated, audit.TagMetadata, audit.MetadataChange{
		InvoiceID: id,
		FileName:  after.Filename,
		Before:    before.Metadata,
		After:     after.Metadata,
	})
	s.logger.Info("invoice metadata updated", "invoice_id", id)
	return after, nil
}

// Delete moves the invoice to the deleted archive.
func (s *Service) Delete(ctx context.Context, id string) (*entity.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.InputError("invoice id is required")
	}
	removed, err := s.repo.Delete(ctx, id, common.IdentityFromContext(ctx).Name(), s.now())
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, constants.AuditDelete, audit.TagInvoice, *removed)
	s.logger.Info("invoice deleted", "invoice_id", id)
	return removed, nil
}

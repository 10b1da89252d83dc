// Package commit promotes staged documents to durable invoices, rejecting
// documents whose (issuer VAT, date, number) key is already stored.
package commit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/batch"
	"github.com/joseph-ayodele/invoice-intake/internal/core/extraction"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Manual is an invoice entered by hand, outside any batch.
type Manual struct {
	Filename   string
	Content    []byte
	Metadata   entity.InvoiceMetadata
	Comment    string
	CostCenter string
}

type Pipeline struct {
	tx       batch.Transactor
	invoices repository.InvoiceRepository
	staged   repository.StagedDocumentRepository
	workflow *batch.Workflow
	audit    audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewPipeline(tx batch.Transactor, invoices repository.InvoiceRepository, staged repository.StagedDocumentRepository, workflow *batch.Workflow, recorder audit.Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Pipeline{
		tx:       tx,
		invoices: invoices,
		staged:   staged,
		workflow: workflow,
		audit:    recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// FindDuplicate returns the stored invoice sharing md's key, or nil.
// Metadata with a blank key never has a duplicate.
func (p *Pipeline) FindDuplicate(ctx context.Context, md entity.InvoiceMetadata) (*entity.Invoice, error) {
	return p.invoices.FindByKey(ctx, md.Key())
}

// Commit promotes the given staged documents. Unknown ids and duplicates are
// reported in the result; only store faults are errors.
func (p *Pipeline) Commit(ctx context.Context, ids []string) (*entity.CommitResult, error) {
	if err := common.ValidateAndReturnInputError(common.NewValidator().Field("ids", ids, common.NonEmptySlice)); err != nil {
		return nil, err
	}
	ids = unique(ids)
	docs, err := p.staged.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := newResult()
	author := common.IdentityFromContext(ctx).Name()

	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			p.logger.Warn("commit.not_found", "file_id", id)
			res.NotFound = append(res.NotFound, id)
			continue
		}
		saved, dup, err := p.commitOne(ctx, doc, author)
		if err != nil {
			return res, err
		}
		if dup != nil {
			res.Duplicated = append(res.Duplicated, *dup)
			res.FailedDocuments = append(res.FailedDocuments, *doc)
			continue
		}
		res.Saved = append(res.Saved, *saved)
		res.SavedDocuments = append(res.SavedDocuments, *doc)
		p.audit.Record(ctx, constants.AuditSubmit, audit.TagInvoice, *saved)
	}

	p.logger.Info("commit.done",
		"saved", len(res.Saved),
		"duplicated", len(res.Duplicated),
		"not_found", len(res.NotFound),
		"user", author,
	)
	return res, nil
}

// commitOne saves doc unless its key is taken. Either way the staged record
// is removed. dup is set when doc duplicates a stored invoice.
func (p *Pipeline) commitOne(ctx context.Context, doc *entity.StagedDocument, author string) (saved, dup *entity.Invoice, err error) {
	inv := p.invoiceFrom(doc, author)
	key := doc.Metadata.Key()

	err = p.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := p.FindDuplicate(ctx, doc.Metadata)
		if err != nil {
			return err
		}
		if existing != nil {
			dup = existing
		} else if err := p.invoices.Create(ctx, inv); err != nil {
			return err
		}
		_, err = p.workflow.Remove(ctx, doc)
		return err
	})

	if common.KindOf(err) == common.KindConflict {
		// Another commit stored the same key between our check and insert.
		existing, ferr := p.FindDuplicate(ctx, doc.Metadata)
		if ferr != nil {
			return nil, nil, ferr
		}
		if existing == nil {
			existing = inv
		}
		if _, rerr := p.workflow.Remove(ctx, doc); rerr != nil {
			return nil, nil, rerr
		}
		dup, err = existing, nil
	}
	if err != nil {
		p.logger.Error("failed to commit staged document", "file_id", doc.ID, "error", err)
		return nil, nil, err
	}
	if dup != nil {
		p.logger.Warn("commit.duplicate", "file_id", doc.ID, "key", key.String(), "existing_id", dup.ID)
		return nil, dup, nil
	}
	p.logger.Info("commit.saved", "file_id", doc.ID, "invoice_id", inv.ID)
	return inv, nil, nil
}

// CommitManual stores a hand-entered invoice. A duplicate is a conflict error.
func (p *Pipeline) CommitManual(ctx context.Context, m Manual) (*entity.Invoice, error) {
	ft, err := extraction.Classify(m.Filename)
	if err != nil {
		return nil, err
	}
	md := m.Metadata
	if m.Comment != "" {
		md.Comment = m.Comment
	}
	if m.CostCenter != "" {
		md.CostCenter = m.CostCenter
	}
	if md.OriginalFileName == "" {
		md.OriginalFileName = m.Filename
	}
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	doc := &entity.StagedDocument{
		Filename:   m.Filename,
		FileType:   string(ft),
		Content:    m.Content,
		Layout:     constants.ManualLayoutName,
		Metadata:   md,
		Comment:    m.Comment,
		CostCenter: m.CostCenter,
	}
	inv := p.invoiceFrom(doc, common.IdentityFromContext(ctx).Name())

	err = p.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := p.FindDuplicate(ctx, md)
		if err != nil {
			return err
		}
		if existing != nil {
			return common.ConflictError("invoice %s already exists", md.Key().String())
		}
		return p.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	p.audit.Record(ctx, constants.AuditSubmit, audit.TagInvoice, *inv)
	p.logger.Info("commit.manual", "invoice_id", inv.ID, "file", inv.Filename)
	return inv, nil
}

// SaveBatch commits every staged document of the batch. The batch is gone afterwards.
func (p *Pipeline) SaveBatch(ctx context.Context, batchID string) (*entity.CommitResult, error) {
	docs, err := p.workflow.Documents(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		if _, err := p.workflow.DeleteBatch(ctx, batchID); err != nil {
			return nil, err
		}
		return newResult(), nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return p.Commit(ctx, ids)
}

func (p *Pipeline) invoiceFrom(doc *entity.StagedDocument, author string) *entity.Invoice {
	now := p.now().UTC()
	md := doc.Metadata
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	return &entity.Invoice{
		ID:        uuid.NewString(),
		Filename:  doc.Filename,
		FileType:  doc.FileType,
		Content:   doc.Content,
		Layout:    doc.Layout,
		Metadata:  md,
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newResult() *entity.CommitResult {
	return &entity.CommitResult{
		Saved:           []entity.Invoice{},
		Duplicated:      []entity.Invoice{},
		NotFound:        []string{},
		SavedDocuments:  []entity.StagedDocument{},
		FailedDocuments: []entity.StagedDocument{},
	}
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Package batch holds the staging workflow: time-boxed batches of extracted
// documents awaiting review, edit and commit.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// DefaultTTL is how long a batch may wait for review before the sweep removes it.
const DefaultTTL = 24 * time.Hour

// Transactor runs fn in a transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Staging describes one extracted document to stage.
type Staging struct {
	Filename   string
	FileType   constants.FileType
	Content    []byte
	Layout     string
	Metadata   entity.InvoiceMetadata
	Comment    string
	CostCenter string
	Extracted  bool
}

// DeleteResult reports what DeleteStagedDocuments removed.
type DeleteResult struct {
	Deleted        []string `json:"deleted"`
	NotFound       []string `json:"notFound"`
	BatchesDeleted []string `json:"batchesDeleted"`
}

type Workflow struct {
	tx      Transactor
	batches repository.BatchRepository
	staged  repository.StagedDocumentRepository
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewWorkflow(tx Transactor, batches repository.BatchRepository, staged repository.StagedDocumentRepository, ttl time.Duration, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Workflow{tx: tx, batches: batches, staged: staged, ttl: ttl, logger: logger, now: time.Now}
}

// CreateBatch opens a new batch in UPLOADED state expiring after the TTL.
func (w *Workflow) CreateBatch(ctx context.Context) (*entity.Batch, error) {
	now := w.now().UTC()
	b := &entity.Batch{
		ID:             uuid.NewString(),
		State:          constants.BatchStateUploaded,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpirationDate: now.Add(w.ttl),
	}
	if err := w.batches.Create(ctx, b); err != nil {
		return nil, err
	}
	w.logger.Info("batch.created", "batch_id", b.ID, "expires", b.ExpirationDate)
	return b, nil
}

// StageDocument stores one document under the batch and moves the batch to REVIEW.
// Upload comment and cost center are copied into the metadata.
func (w *Workflow) StageDocument(ctx context.Context, batchID string, in Staging) (*entity.StagedDocument, error) {
	now := w.now().UTC()
	md := in.Metadata
	if in.Comment != "" {
		md.Comment = in.Comment
	}
	if in.CostCenter != "" {
		md.CostCenter = in.CostCenter
	}
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	doc := &entity.StagedDocument{
		ID:         uuid.NewString(),
		BatchID:    batchID,
		Filename:   in.Filename,
		FileType:   string(in.FileType),
		Content:    in.Content,
		Layout:     in.Layout,
		Metadata:   md,
		State:      constants.DocumentStateReview,
		Comment:    in.Comment,
		CostCenter: in.CostCenter,
		Extracted:  in.Extracted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := w.batches.Get(ctx, batchID); err != nil {
			return err
		}
		if err := w.staged.Create(ctx, doc); err != nil {
			return err
		}
		return w.batches.UpdateState(ctx, batchID, constants.BatchStateReview, now)
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("batch.staged", "batch_id", batchID, "file_id", doc.ID, "file", doc.Filename, "extracted", doc.Extracted)
	return doc, nil
}

// Batch returns the batch by id.
func (w *Workflow) Batch(ctx context.Context, batchID string) (*entity.Batch, error) {
	return w.batches.Get(ctx, batchID)
}

// Documents returns every staged document of the batch in upload order.
func (w *Workflow) Documents(ctx context.Context, batchID string) ([]entity.StagedDocument, error) {
	if _, err := w.batches.Get(ctx, batchID); err != nil {
		return nil, err
	}
	return w.staged.ListByBatch(ctx, batchID)
}

// Review summarizes every staged document of the batch.
func (w *Workflow) Review(ctx context.Context, batchID string) ([]entity.StagedSummary, error) {
	docs, err := w.Documents(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.StagedSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Summary())
	}
	return out, nil
}

func (w *Workflow) GetStagedDocument(ctx context.Context, id string) (*entity.StagedDocument, error) {
	return w.staged.Get(ctx, id)
}

// EditStagedMetadata replaces the metadata of a staged document and marks it EDITED.
func (w *Workflow) EditStagedMetadata(ctx context.Context, id string, md entity.InvoiceMetadata) (*entity.StagedDocument, error) {
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	var updated *entity.StagedDocument
	err := w.tx.InTx(ctx, func(ctx context.Context) error {
		if err := w.staged.UpdateMetadata(ctx, id, md, constants.DocumentStateEdited, w.now().UTC()); err != nil {
			return err
		}
		var err error
		updated, err = w.staged.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("batch.edited", "file_id", id, "batch_id", updated.BatchID)
	return updated, nil
}

// DeleteStagedDocuments removes the given staged documents. Batches left
// without documents are deleted too.
func (w *Workflow) DeleteStagedDocuments(ctx context.Context, ids []string) (*DeleteResult, error) {
	if err := common.ValidateAndReturnInputError(common.NewValidator().Field("ids", ids, common.NonEmptySlice)); err != nil {
		return nil, err
	}
	res := &DeleteResult{}
	for _, id := range ids {
		err := w.tx.InTx(ctx, func(ctx context.Context) error {
			doc, err := w.staged.Get(ctx, id)
			if err != nil {
				return err
			}
			batchGone, err := w.Remove(ctx, doc)
			if err != nil {
				return err
			}
			res.Deleted = append(res.Deleted, id)
			if batchGone {
				res.BatchesDeleted = append(res.BatchesDeleted, doc.BatchID)
			}
			return nil
		})
		if err == nil {
			continue
		}
		if common.KindOf(err) == common.KindNotFound {
			res.NotFound = append(res.NotFound, id)
			continue
		}
		return res, err
	}
	return res, nil
}

// Remove deletes one staged document and, when it was the last one, its batch.
// It joins the caller's transaction when ctx carries one.
func (w *Workflow) Remove(ctx context.Context, doc *entity.StagedDocument) (batchDeleted bool, err error) {
	err = w.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := w.staged.Delete(ctx, doc.ID); err != nil {
			return err
		}
		left, err := w.staged.CountByBatch(ctx, doc.BatchID)
		if err != nil {
			return err
		}
		if left > 0 {
			return nil
		}
		batchDeleted, err = w.batches.Delete(ctx, doc.BatchID)
		return err
	})
	if err != nil {
		return false, err
	}
	if batchDeleted {
		w.logger.Info("batch.emptied", "batch_id", doc.BatchID)
	}
	return batchDeleted, nil
}

// DeleteBatch removes a batch and whatever documents it still holds.
func (w *Workflow) DeleteBatch(ctx context.Context, batchID string) (bool, error) {
	ok, err := w.batches.Delete(ctx, batchID)
	if err != nil {
		return false, err
	}
	if ok {
		w.logger.Info("batch.deleted", "batch_id", batchID)
	}
	return ok, nil
}

// SweepExpired deletes every batch past its expiration with its documents.
// Batches removed concurrently are skipped, so repeated runs are harmless.
func (w *Workflow) SweepExpired(ctx context.Context) (int, error) {
	now := w.now().UTC()
	expired, err := w.batches.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, b := range expired {
		ok, err := w.batches.Delete(ctx, b.ID)
		if err != nil {
			w.logger.Error("failed to delete expired batch", "batch_id", b.ID, "error", err)
			continue
		}
		if ok {
			removed++
		}
	}
	w.logger.Info("batch.sweep", "expired", len(expired), "removed", removed)
	return removed, nil
}

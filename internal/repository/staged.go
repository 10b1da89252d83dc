package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

type StagedDocumentRepository interface {
	Create(ctx context.Context, d *entity.StagedDocument) error
	Get(ctx context.Context, id string) (*entity.StagedDocument, error)
	GetMany(ctx context.Context, ids []string) (map[string]*entity.StagedDocument, error)
	ListByBatch(ctx context.Context, batchID string) ([]entity.StagedDocument, error)
	UpdateMetadata(ctx context.Context, id string, md entity.InvoiceMetadata, state constants.DocumentState, now time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

type stagedRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewStagedDocumentRepository(db *DB, logger *slog.Logger) StagedDocumentRepository {
	return &stagedRepo{db: db, logger: logger}
}

var stagedColumns = []string{
	"id", "batch_id", "filename", "file_type", "content", "layout", "metadata",
	"state", "comment", "cost_center", "extracted", "created_at", "updated_at",
}

func scanStaged(rows *entsql.Rows) (entity.StagedDocument, error) {
	var (
		d     entity.StagedDocument
		md    string
		state string
	)
	err := rows.Scan(&d.ID, &d.BatchID, &d.Filename, &d.FileType, &d.Content, &d.Layout, &md,
		&state, &d.Comment, &d.CostCenter, &d.Extracted, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.State = constants.DocumentState(state)
	if err := json.Unmarshal([]byte(md), &d.Metadata); err != nil {
		return d, err
	}
	return d, nil
}

func (r *stagedRepo) Create(ctx context.Context, d *entity.StagedDocument) error {
	md, err := json.Marshal(d.Metadata)
	if err != nil {
		return common.WrapError(err, "encoding staged metadata")
	}
	q, args := r.db.builder().Insert("staged_documents").
		Columns(stagedColumns...).
		Values(d.ID, d.BatchID, d.Filename, d.FileType, d.Content, d.Layout, string(md),
			string(d.State), d.Comment, d.CostCenter, d.Extracted, d.CreatedAt.UTC(), d.UpdatedAt.UTC()).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create staged document", "file_id", d.ID, "batch_id", d.BatchID, "error", err)
		return common.StoreError("create staged document", err)
	}
	return nil
}

func (r *stagedRepo) Get(ctx context.Context, id string) (*entity.StagedDocument, error) {
	docs, err := r.GetMany(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	d, ok := docs[id]
	if !ok {
		return nil, common.NotFound("staged document", id)
	}
	return d, nil
}

// GetMany returns the staged documents that exist among ids, keyed by id.
func (r *stagedRepo) GetMany(ctx context.Context, ids []string) (map[string]*entity.StagedDocument, error) {
	out := make(map[string]*entity.StagedDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	in := make([]any, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	q, args := r.db.builder().Select(stagedColumns...).
		From(entsql.Table("staged_documents")).
		Where(entsql.In("id", in...)).
		Query()
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		d, err := scanStaged(rows)
		if err != nil {
			return err
		}
		out[d.ID] = &d
		return nil
	})
	if err != nil {
		r.logger.Error("failed to get staged documents", "count", len(ids), "error", err)
		return nil, common.StoreError("get staged documents", err)
	}
	return out, nil
}

func (r *stagedRepo) ListByBatch(ctx context.Context, batchID string) ([]entity.StagedDocument, error) {
	q, args := r.db.builder().Select(stagedColumns...).
		From(entsql.Table("staged_documents")).
		Where(entsql.EQ("batch_id", batchID)).
		OrderBy("created_at", "id").
		Query()
	var out []entity.StagedDocument
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		d, err := scanStaged(rows)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list staged documents", "batch_id", batchID, "error", err)
		return nil, common.StoreError("list staged documents", err)
	}
	return out, nil
}

func (r *stagedRepo) UpdateMetadata(ctx context.Context, id string, md entity.InvoiceMetadata, state constants.DocumentState, now time.Time) error {
	b, err := json.Marshal(md)
	if err != nil {
		return common.WrapError(err, "encoding staged metadata")
	}
	q, args := r.db.builder().Update("staged_documents").
		Set("metadata", string(b)).
		Set("state", string(state)).
		Set("updated_at", now.UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update staged metadata", "file_id", id, "error", err)
		return common.StoreError("update staged document", err)
	}
	if n == 0 {
		return common.NotFound("staged document", id)
	}
	return nil
}

func (r *stagedRepo) Delete(ctx context.Context, id string) (bool, error) {
	q, args := r.db.builder().Delete("staged_documents").Where(entsql.EQ("id", id)).Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to delete staged document", "file_id", id, "error", err)
		return false, common.StoreError("delete staged document", err)
	}
	return n > 0, nil
}

func (r *stagedRepo) CountByBatch(ctx context.Context, batchID string) (int, error) {
	q, args := r.db.builder().Select(entsql.Count("*")).
		From(entsql.Table("staged_documents")).
		Where(entsql.EQ("batch_id", batchID)).
		Query()
	var n int
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		r.logger.Error("failed to count staged documents", "batch_id", batchID, "error", err)
		return 0, common.StoreError("count staged documents", err)
	}
	return n, nil
}

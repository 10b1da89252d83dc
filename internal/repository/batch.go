package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

type BatchRepository interface {
	Create(ctx context.Context, b *entity.Batch) error
	Get(ctx context.Context, id string) (*entity.Batch, error)
	UpdateState(ctx context.Context, id string, state constants.BatchState, now time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]entity.Batch, error)
}

type batchRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewBatchRepository(db *DB, logger *slog.Logger) BatchRepository {
	return &batchRepo{db: db, logger: logger}
}

var batchColumns = []string{"id", "state", "created_at", "updated_at", "expiration_date"}

func scanBatch(rows *entsql.Rows) (entity.Batch, error) {
	var b entity.Batch
	var state string
	err := rows.Scan(&b.ID, &state, &b.CreatedAt, &b.UpdatedAt, &b.ExpirationDate)
	b.State = constants.BatchState(state)
	return b, err
}

func (r *batchRepo) Create(ctx context.Context, b *entity.Batch) error {
	q, args := r.db.builder().Insert("batches").
		Columns(batchColumns...).
		Values(b.ID, string(b.State), b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.ExpirationDate.UTC()).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create batch", "batch_id", b.ID, "error", err)
		return common.StoreError("create batch", err)
	}
	return nil
}

func (r *batchRepo) Get(ctx context.Context, id string) (*entity.Batch, error) {
	q, args := r.db.builder().Select(batchColumns...).
		From(entsql.Table("batches")).
		Where(entsql.EQ("id", id)).
		Query()
	var found *entity.Batch
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		b, err := scanBatch(rows)
		found = &b
		return err
	})
	if err != nil {
		r.logger.Error("failed to get batch", "batch_id", id, "error", err)
		return nil, common.StoreError("get batch", err)
	}
	if found == nil {
		return nil, common.NotFound("batch", id)
	}
	return found, nil
}

func (r *batchRepo) UpdateState(ctx context.Context, id string, state constants.BatchState, now time.Time) error {
	q, args := r.db.builder().Update("batches").
		Set("state", string(state)).
		Set("updated_at", now.UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update batch state", "batch_id", id, "state", state, "error", err)
		return common.StoreError("update batch", err)
	}
	if n == 0 {
		return common.NotFound("batch", id)
	}
	return nil
}

// Delete removes the batch and its staged documents. It reports whether a batch row was removed,
// so concurrent deleters can run it without coordination.
func (r *batchRepo) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.db.InTx(ctx, func(ctx context.Context) error {
		q, args := r.db.builder().Delete("staged_documents").Where(entsql.EQ("batch_id", id)).Query()
		if _, err := r.db.exec(ctx, q, args); err != nil {
			return err
		}
		q, args = r.db.builder().Delete("batches").Where(entsql.EQ("id", id)).Query()
		n, err := r.db.exec(ctx, q, args)
		removed = n > 0
		return err
	})
	if err != nil {
		r.logger.Error("failed to delete batch", "batch_id", id, "error", err)
		return false, common.StoreError("delete batch", err)
	}
	return removed, nil
}

func (r *batchRepo) ListExpired(ctx context.Context, now time.Time) ([]entity.Batch, error) {
	q, args := r.db.builder().Select(batchColumns...).
		From(entsql.Table("batches")).
		Where(entsql.LTE("expiration_date", now.UTC())).
		OrderBy("expiration_date").
		Query()
	return r.list(ctx, q, args)
}

func (r *batchRepo) list(ctx context.Context, q string, args []any) ([]entity.Batch, error) {
	var out []entity.Batch
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		b, err := scanBatch(rows)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list batches", "error", err)
		return nil, common.StoreError("list batches", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

type AuditRepository interface {
	Insert(ctx context.Context, e *entity.AuditEvent) error
	List(ctx context.Context, op constants.AuditOperation, limit int) ([]entity.AuditEvent, error)
	Count(ctx context.Context) (int, error)
}

type auditRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewAuditRepository(db *DB, logger *slog.Logger) AuditRepository {
	return &auditRepo{db: db, logger: logger}
}

var auditColumns = []string{"id", "operation", "username", "file_name", "content", "request_id", "occurred_at"}

func (r *auditRepo) Insert(ctx context.Context, e *entity.AuditEvent) error {
	q, args := r.db.builder().Insert("audit_events").
		Columns(auditColumns...).
		Values(e.ID, string(e.Operation), e.Username, e.FileName, e.Content, e.RequestID, e.Timestamp.UTC()).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to insert audit event", "operation", e.Operation, "error", err)
		return common.StoreError("insert audit event", err)
	}
	return nil
}

// List returns the newest events first; an empty op matches every operation.
func (r *auditRepo) List(ctx context.Context, op constants.AuditOperation, limit int) ([]entity.AuditEvent, error) {
	sel := r.db.builder().Select(auditColumns...).
		From(entsql.Table("audit_events")).
		OrderBy(entsql.Desc("occurred_at"))
	if op != "" {
		sel.Where(entsql.EQ("operation", string(op)))
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	var out []entity.AuditEvent
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			e         entity.AuditEvent
			operation string
		)
		if err := rows.Scan(&e.ID, &operation, &e.Username, &e.FileName, &e.Content, &e.RequestID, &e.Timestamp); err != nil {
			return err
		}
		e.Operation = constants.AuditOperation(operation)
		out = append(out, e)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list audit events", "error", err)
		return nil, common.StoreError("list audit events", err)
	}
	return out, nil
}

func (r *auditRepo) Count(ctx context.Context) (int, error) {
	q, args := r.db.builder().Select(entsql.Count("*")).From(entsql.Table("audit_events")).Query()
	var n int
	if err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error { return rows.Scan(&n) }); err != nil {
		r.logger.Error("failed to count audit events", "error", err)
		return 0, common.StoreError("count audit events", err)
	}
	return n, nil
}

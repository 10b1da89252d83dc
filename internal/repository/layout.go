package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

type LayoutRepository interface {
	Create(ctx context.Context, l *entity.Layout) error
	Get(ctx context.Context, id string) (*entity.Layout, error)
	GetByName(ctx context.Context, name string) (*entity.Layout, error)
	// Resolve looks nameOrID up by id first, then by name.
	Resolve(ctx context.Context, nameOrID string) (*entity.Layout, error)
	List(ctx context.Context) ([]entity.Layout, error)
	Update(ctx context.Context, l *entity.Layout) error
	Delete(ctx context.Context, id string) error
}

type layoutRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewLayoutRepository(db *DB, logger *slog.Logger) LayoutRepository {
	return &layoutRepo{db: db, logger: logger}
}

var layoutColumns = []string{"id", "name", "language", "date_format", "fields", "version", "created_by", "created_at", "updated_at"}

func scanLayout(rows *entsql.Rows) (entity.Layout, error) {
	var (
		l      entity.Layout
		fields string
	)
	if err := rows.Scan(&l.ID, &l.Name, &l.Language, &l.DateFormat, &fields, &l.Version, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(fields), &l.Fields); err != nil {
		return l, err
	}
	return l, nil
}

func (r *layoutRepo) Create(ctx context.Context, l *entity.Layout) error {
	fields, err := json.Marshal(l.Fields)
	if err != nil {
		return common.WrapError(err, "encoding layout fields")
	}
	l.Version = 1
	q, args := r.db.builder().Insert("layouts").
		Columns(layoutColumns...).
		Values(l.ID, l.Name, l.Language, l.DateFormat, string(fields), l.Version, l.CreatedBy, l.CreatedAt.UTC(), l.UpdatedAt.UTC()).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		if isUniqueViolation(err) {
			return common.ConflictError("layout %q already exists", l.Name)
		}
		r.logger.Error("failed to create layout", "name", l.Name, "error", err)
		return common.StoreError("create layout", err)
	}
	return nil
}

func (r *layoutRepo) Get(ctx context.Context, id string) (*entity.Layout, error) {
	return r.one(ctx, "id", id)
}

func (r *layoutRepo) GetByName(ctx context.Context, name string) (*entity.Layout, error) {
	return r.one(ctx, "name", name)
}

func (r *layoutRepo) Resolve(ctx context.Context, nameOrID string) (*entity.Layout, error) {
	l, err := r.Get(ctx, nameOrID)
	if err == nil || common.KindOf(err) != common.KindNotFound {
		return l, err
	}
	return r.GetByName(ctx, nameOrID)
}

func (r *layoutRepo) List(ctx context.Context) ([]entity.Layout, error) {
	q, args := r.db.builder().Select(layoutColumns...).
		From(entsql.Table("layouts")).
		OrderBy("name").
		Query()
	var out []entity.Layout
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		l, err := scanLayout(rows)
		if err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list layouts", "error", err)
		return nil, common.StoreError("list layouts", err)
	}
	return out, nil
}

// Update overwrites the layout's rules and bumps its stored version.
func (r *layoutRepo) Update(ctx context.Context, l *entity.Layout) error {
	fields, err := json.Marshal(l.Fields)
	if err != nil {
		return common.WrapError(err, "encoding layout fields")
	}
	q, args := r.db.builder().Update("layouts").
		Set("name", l.Name).
		Set("language", l.Language).
		Set("date_format", l.DateFormat).
		Set("fields", string(fields)).
		Add("version", 1).
		Set("updated_at", l.UpdatedAt.UTC()).
		Where(entsql.EQ("id", l.ID)).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ConflictError("layout %q already exists", l.Name)
		}
		r.logger.Error("failed to update layout", "layout_id", l.ID, "error", err)
		return common.StoreError("update layout", err)
	}
	if n == 0 {
		return common.NotFound("layout", l.ID)
	}
	return nil
}

func (r *layoutRepo) Delete(ctx context.Context, id string) error {
	q, args := r.db.builder().Delete("layouts").Where(entsql.EQ("id", id)).Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to delete layout", "layout_id", id, "error", err)
		return common.StoreError("delete layout", err)
	}
	if n == 0 {
		return common.NotFound("layout", id)
	}
	return nil
}

func (r *layoutRepo) one(ctx context.Context, column, value string) (*entity.Layout, error) {
	q, args := r.db.builder().Select(layoutColumns...).
		From(entsql.Table("layouts")).
		Where(entsql.EQ(column, value)).
		Query()
	var found *entity.Layout
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		l, err := scanLayout(rows)
		found = &l
		return err
	})
	if err != nil {
		r.logger.Error("failed to get layout", column, value, "error", err)
		return nil, common.StoreError("get layout", err)
	}
	if found == nil {
		return nil, common.NotFound("layout", value)
	}
	return found, nil
}

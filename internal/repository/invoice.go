package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// InvoiceFilter narrows List. Zero values mean "no bound".
type InvoiceFilter struct {
	From   time.Time
	To     time.Time
	Issuer string
	Limit  int
	Offset int
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	Get(ctx context.Context, id string) (*entity.Invoice, error)
	FindByKey(ctx context.Context, key entity.DuplicateKey) (*entity.Invoice, error)
	LatestCompanyName(ctx context.Context, issuerVAT string) (string, error)
	UpdateMetadata(ctx context.Context, id string, md entity.InvoiceMetadata, now time.Time) error
	Delete(ctx context.Context, id, deletedBy string, now time.Time) (*entity.Invoice, error)
	List(ctx context.Context, f InvoiceFilter) ([]entity.Invoice, error)
	Count(ctx context.Context) (int, error)
}

type invoiceRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *DB, logger *slog.Logger) InvoiceRepository {
	return &invoiceRepo{db: db, logger: logger}
}

var invoiceColumns = []string{
	"id", "filename", "file_type", "content", "layout", "metadata",
	"created_by", "created_at", "updated_at",
}

func scanInvoice(rows *entsql.Rows) (entity.Invoice, error) {
	var (
		inv entity.Invoice
		md  string
	)
	err := rows.Scan(&inv.ID, &inv.Filename, &inv.FileType, &inv.Content, &inv.Layout, &md,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return inv, err
	}
	if err := json.Unmarshal([]byte(md), &inv.Metadata); err != nil {
		return inv, err
	}
	return inv, nil
}

// Create inserts inv. A unique-key collision on the duplicate key returns common.ErrConflict.
func (r *invoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	md, err := json.Marshal(inv.Metadata)
	if err != nil {
		return common.WrapError(err, "encoding invoice metadata")
	}
	key := inv.Metadata.Key()
	q, args := r.db.builder().Insert("invoices").
		Columns(append(invoiceColumns, "issuer_vat", "invoice_date", "invoice_number", "company_name")...).
		Values(inv.ID, inv.Filename, inv.FileType, inv.Content, inv.Layout, string(md),
			inv.CreatedBy, inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
			key.IssuerVATNumber, key.InvoiceDate, key.InvoiceNumber, inv.Metadata.CompanyName).
		Query()
	if _, err := r.db.exec(ctx, q, args); err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("duplicate invoice rejected by store", "invoice_id", inv.ID, "key", key.String())
			return common.ConflictError("invoice %s already exists", key.String())
		}
		r.logger.Error("failed to create invoice", "invoice_id", inv.ID, "error", err)
		return common.StoreError("create invoice", err)
	}
	return nil
}

func (r *invoiceRepo) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	q, args := r.db.builder().Select(invoiceColumns...).
		From(entsql.Table("invoices")).
		Where(entsql.EQ("id", id)).
		Query()
	found, err := r.first(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to get invoice", "invoice_id", id, "error", err)
		return nil, common.StoreError("get invoice", err)
	}
	if found == nil {
		return nil, common.NotFound("invoice", id)
	}
	return found, nil
}

// FindByKey returns the stored invoice whose key matches key exactly, empty
// components included. A blank key never matches.
func (r *invoiceRepo) FindByKey(ctx context.Context, key entity.DuplicateKey) (*entity.Invoice, error) {
	if key.Blank() {
		return nil, nil
	}
	q, args := r.db.builder().Select(invoiceColumns...).
		From(entsql.Table("invoices")).
		Where(entsql.And(
			entsql.EQ("issuer_vat", key.IssuerVATNumber),
			entsql.EQ("invoice_date", key.InvoiceDate),
			entsql.EQ("invoice_number", key.InvoiceNumber),
		)).
		Limit(1).
		Query()
	found, err := r.first(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to find invoice by key", "key", key.String(), "error", err)
		return nil, common.StoreError("find invoice", err)
	}
	return found, nil
}

// LatestCompanyName returns the company name of the most recent invoice for issuerVAT
// that has one, or "".
func (r *invoiceRepo) LatestCompanyName(ctx context.Context, issuerVAT string) (string, error) {
	q, args := r.db.builder().Select("company_name").
		From(entsql.Table("invoices")).
		Where(entsql.And(
			entsql.EQ("issuer_vat", issuerVAT),
			entsql.NEQ("company_name", ""),
		)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	var name string
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		return rows.Scan(&name)
	})
	if err != nil {
		r.logger.Error("failed to look up company name", "issuer_vat", issuerVAT, "error", err)
		return "", common.StoreError("latest company name", err)
	}
	return name, nil
}

func (r *invoiceRepo) UpdateMetadata(ctx context.Context, id string, md entity.InvoiceMetadata, now time.Time) error {
	b, err := json.Marshal(md)
	if err != nil {
		return common.WrapError(err, "encoding invoice metadata")
	}
	key := md.Key()
	q, args := r.db.builder().Update("invoices").
		Set("metadata", string(b)).
		Set("issuer_vat", key.IssuerVATNumber).
		Set("invoice_date", key.InvoiceDate).
		Set("invoice_number", key.InvoiceNumber).
		Set("company_name", md.CompanyName).
		Set("updated_at", now.UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := r.db.exec(ctx, q, args)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ConflictError("invoice %s already exists", key.String())
		}
		r.logger.Error("failed to update invoice metadata", "invoice_id", id, "error", err)
		return common.StoreError("update invoice", err)
	}
	if n == 0 {
		return common.NotFound("invoice", id)
	}
	return nil
}

// Delete moves the invoice into deleted_invoices and returns the removed record.
func (r *invoiceRepo) Delete(ctx context.Context, id, deletedBy string, now time.Time) (*entity.Invoice, error) {
	var removed *entity.Invoice
	err := r.db.InTx(ctx, func(ctx context.Context) error {
		inv, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		md, err := json.Marshal(inv.Metadata)
		if err != nil {
			return err
		}
		q, args := r.db.builder().Insert("deleted_invoices").
			Columns(append(invoiceColumns, "deleted_by", "deleted_at")...).
			Values(inv.ID, inv.Filename, inv.FileType, inv.Content, inv.Layout, string(md),
				inv.CreatedBy, inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(), deletedBy, now.UTC()).
			Query()
		if _, err := r.db.exec(ctx, q, args); err != nil {
			return err
		}
		q, args = r.db.builder().Delete("invoices").Where(entsql.EQ("id", id)).Query()
		if _, err := r.db.exec(ctx, q, args); err != nil {
			return err
		}
		removed = inv
		return nil
	})
	if err != nil {
		r.logger.Error("failed to delete invoice", "invoice_id", id, "error", err)
		return nil, common.StoreError("delete invoice", err)
	}
	return removed, nil
}

func (r *invoiceRepo) List(ctx context.Context, f InvoiceFilter) ([]entity.Invoice, error) {
	var preds []*entsql.Predicate
	if !f.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", f.From.UTC()))
	}
	if !f.To.IsZero() {
		preds = append(preds, entsql.LT("created_at", f.To.UTC()))
	}
	if f.Issuer != "" {
		preds = append(preds, entsql.EQ("issuer_vat", f.Issuer))
	}
	sel := r.db.builder().Select(invoiceColumns...).
		From(entsql.Table("invoices")).
		OrderBy(entsql.Desc("created_at"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit).Offset(f.Offset)
	}
	q, args := sel.Query()
	var out []entity.Invoice
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		inv, err := scanInvoice(rows)
		if err != nil {
			return err
		}
		out = append(out, inv)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, common.StoreError("list invoices", err)
	}
	return out, nil
}

func (r *invoiceRepo) Count(ctx context.Context) (int, error) {
	q, args := r.db.builder().Select(entsql.Count("*")).From(entsql.Table("invoices")).Query()
	var n int
	if err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error { return rows.Scan(&n) }); err != nil {
		r.logger.Error("failed to count invoices", "error", err)
		return 0, common.StoreError("count invoices", err)
	}
	return n, nil
}

func (r *invoiceRepo) first(ctx context.Context, q string, args []any) (*entity.Invoice, error) {
	var found *entity.Invoice
	err := r.db.query(ctx, q, args, func(rows *entsql.Rows) error {
		inv, err := scanInvoice(rows)
		found = &inv
		return err
	})
	return found, err
}

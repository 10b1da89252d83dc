package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

const sheet = "Invoices"

var headers = []string{
	"Invoice Date",
	"Invoice Number",
	"Issuer VAT",
	"Company Name",
	"Acquirer VAT",
	"ATCUD",
	"Currency",
	"Subtotal",
	"VAT",
	"Total",
	"Items",
	"Cost Center",
	"Comment",
	"File",
}

// Service produces XLSX bytes for invoice exports.
type Service struct {
	invoices repository.InvoiceRepository
	audit    audit.Recorder
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Service{invoices: invoices, audit: recorder, logger: logger}
}

// FileName is the attachment name used for an export made at t.
func FileName(t time.Time) string {
	return "invoices-" + t.UTC().Format("20060102-150405") + ".xlsx"
}

// ExportInvoicesXLSX returns a workbook with one row per invoice matching f,
// newest first, followed by a totals row.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, f repository.InvoiceFilter) ([]byte, error) {
	start := time.Now()

	list, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()
	if index, _ := wb.GetSheetIndex(sheet); index == -1 {
		if _, err := wb.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := wb.GetSheetIndex(sheet)
	wb.SetActiveSheet(activeIndex)
	_ = wb.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}

	total := decimal.Zero
	names := make([]string, 0, len(list))
	row := 2
	for _, inv := range list {
		md := inv.Metadata
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = wb.SetCellValue(sheet, cell, v)
		}
		write(1, md.InvoiceDate.String())
		write(2, md.InvoiceNumber)
		write(3, md.IssuerVATNumber)
		write(4, md.CompanyName)
		write(5, md.AcquirerVATNumber)
		write(6, md.ATCUD)
		write(7, md.Currency)
		write(8, md.Subtotal)
		write(9, md.ValueAddedTax)
		write(10, md.Total)
		write(11, flattenItems(md.Items))
		write(12, md.CostCenter)
		write(13, truncate(md.Comment, 140))
		write(14, inv.Filename)

		if md.Total != "" {
			if d, err := decimal.NewFromString(md.Total); err == nil {
				total = total.Add(d)
			} else {
				s.logger.Warn("export.total_unparsed", "invoice_id", inv.ID, "total", md.Total)
			}
		}
		names = append(names, inv.Filename)
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(9, row)
	totalCell, _ := excelize.CoordinatesToCellName(10, row)
	_ = wb.SetCellValue(sheet, totalLabel, "Total")
	_ = wb.SetCellValue(sheet, totalCell, total.StringFixed(2))

	_ = wb.SetColWidth(sheet, "A", "C", 14)
	_ = wb.SetColWidth(sheet, "D", "D", 32)
	_ = wb.SetColWidth(sheet, "E", "J", 14)
	_ = wb.SetColWidth(sheet, "K", "K", 60)
	_ = wb.SetColWidth(sheet, "L", "M", 24)
	_ = wb.SetColWidth(sheet, "N", "N", 40)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.audit.Record(ctx, constants.AuditExport, audit.TagFile, audit.File{Name: FileName(start), Names: names})
	s.logger.Info("export.xlsx.ok",
		"rows", len(list),
		"total", total.StringFixed(2),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// flattenItems renders line items as "name x qty @ value" separated by "; ".
func flattenItems(items []entity.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		p := it.ItemName
		if it.ItemQuantity != "" {
			p += " x " + it.ItemQuantity
		}
		if it.ItemValue != "" {
			p += " @ " + it.ItemValue
		}
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

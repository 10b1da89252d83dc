package audit

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Tag names the kind of subject an audit event describes.
type Tag string

const (
	TagFile     Tag = "file"
	TagInvoice  Tag = "invoice"
	TagMetadata Tag = "metadata"
	TagLayout   Tag = "layout"
)

// File is the subject of upload and export events.
type File struct {
	Name  string
	Names []string
}

// MetadataChange is the subject of an invoice metadata edit.
type MetadataChange struct {
	InvoiceID string
	FileName  string
	Before    entity.InvoiceMetadata
	After     entity.InvoiceMetadata
}

// LayoutChange is the subject of a layout create or update. Before is nil on create.
type LayoutChange struct {
	Before *entity.Layout
	After  entity.Layout
}

type formatter func(e *entity.AuditEvent, subject any) error

var formatters = map[Tag]formatter{
	TagFile:     formatFile,
	TagInvoice:  formatInvoice,
	TagMetadata: formatMetadata,
	TagLayout:   formatLayout,
}

// Format fills the subject-specific fields of e.
func Format(e *entity.AuditEvent, tag Tag, subject any) error {
	f, ok := formatters[tag]
	if !ok {
		return fmt.Errorf("no audit formatter for tag %q", tag)
	}
	return f(e, subject)
}

func formatFile(e *entity.AuditEvent, subject any) error {
	f, ok := subject.(File)
	if !ok {
		return mismatch(TagFile, subject)
	}
	e.FileName = f.Name
	if len(f.Names) > 0 {
		e.Content = strings.Join(f.Names, "\n")
	}
	return nil
}

func formatInvoice(e *entity.AuditEvent, subject any) error {
	var inv entity.Invoice
	switch v := subject.(type) {
	case entity.Invoice:
		inv = v
	case *entity.Invoice:
		if v == nil {
			return mismatch(TagInvoice, subject)
		}
		inv = *v
	default:
		return mismatch(TagInvoice, subject)
	}
	e.FileName = inv.Filename
	e.Content = fmt.Sprintf("Invoice %s (%s)", inv.Metadata.InvoiceNumber, inv.Metadata.Key())
	return nil
}

func formatMetadata(e *entity.AuditEvent, subject any) error {
	c, ok := subject.(MetadataChange)
	if !ok {
		return mismatch(TagMetadata, subject)
	}
	e.FileName = c.FileName
	e.Content = "Old State:\n" + metadataLines(c.Before) + "\n\nNew State:\n" + metadataLines(c.After)
	return nil
}

func formatLayout(e *entity.AuditEvent, subject any) error {
	c, ok := subject.(LayoutChange)
	if !ok {
		return mismatch(TagLayout, subject)
	}
	e.FileName = "Layout"
	old := "No layout available"
	if c.Before != nil {
		old = layoutLine(*c.Before)
	}
	e.Content = "Old State:\n" + old + "\n\nNew State:\n" + layoutLine(c.After)
	return nil
}

func metadataLines(md entity.InvoiceMetadata) string {
	fields := []struct{ k, v string }{
		{"issuerVATNumber", md.IssuerVATNumber},
		{"acquirerVATNumber", md.AcquirerVATNumber},
		{"companyName", md.CompanyName},
		{"invoiceDate", md.InvoiceDate.String()},
		{"invoiceNumber", md.InvoiceNumber},
		{"currency", md.Currency},
		{"subtotal", md.Subtotal},
		{"valueAddedTax", md.ValueAddedTax},
		{"total", md.Total},
		{"comment", md.Comment},
		{"costCenter", md.CostCenter},
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.k)
		b.WriteString("=")
		b.WriteString(f.v)
	}
	fmt.Fprintf(&b, ", items=%d", len(md.Items))
	return b.String()
}

func layoutLine(l entity.Layout) string {
	parts := []string{"ID: " + l.ID, "Name: " + l.Name, "Language: " + l.Language, "DateFormat: " + l.DateFormat}
	for _, f := range l.Fields {
		parts = append(parts, f.Name+"="+f.Regex)
	}
	return strings.Join(parts, ", ")
}

func mismatch(tag Tag, subject any) error {
	return fmt.Errorf("audit tag %q cannot format %T", tag, subject)
}

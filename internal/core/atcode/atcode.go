// Package atcode reads the KEY:VALUE*KEY:VALUE payload printed as a QR code on
// Portuguese tax-authority (AT) invoices.
package atcode

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Payload keys used by the AT invoice code.
const (
	KeyIssuerVAT       = "A"
	KeyAcquirerVAT     = "B"
	KeyAcquirerCountry = "C"
	KeyInvoiceDate     = "F"
	KeyInvoiceNumber   = "G"
	KeyATCUD           = "H"
	KeyTaxTotal        = "N"
	KeyGrossTotal      = "O"
)

// SubtotalKeys are the per-rate taxable bases summed into the subtotal.
var SubtotalKeys = []string{"I2", "I3", "I5", "I7"}

const dateLayout = "20060102"

// Payload is a parsed code. Later duplicates of a key win.
type Payload map[string]string

// Parse splits text on '*' into KEY:VALUE pairs. Pairs that do not split into
// exactly a key and a non-empty value are dropped.
func Parse(text string) Payload {
	p := Payload{}
	for _, pair := range strings.Split(strings.TrimSpace(text), "*") {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		p[parts[0]] = parts[1]
	}
	return p
}

// IsInvoice reports whether p carries both the issuer VAT number and the invoice date.
func (p Payload) IsInvoice() bool {
	_, vat := p[KeyIssuerVAT]
	_, date := p[KeyInvoiceDate]
	return vat && date
}

// IsInvoicePayload is Parse(text).IsInvoice().
func IsInvoicePayload(text string) bool {
	return Parse(text).IsInvoice()
}

// Subtotal sums the subtotal keys present in p. Values that are not decimals
// are skipped with a warning. ok is false when no subtotal key is present.
func (p Payload) Subtotal(logger *slog.Logger) (sum decimal.Decimal, ok bool) {
	sum = decimal.Zero
	for _, key := range SubtotalKeys {
		v, present := p[key]
		if !present {
			continue
		}
		ok = true
		d, err := decimal.NewFromString(v)
		if err != nil {
			logger.Warn("skipping unparsable subtotal value", "key", key, "value", v, "error", err)
			continue
		}
		sum = sum.Add(d)
	}
	return sum, ok
}

// ToMetadata maps p onto invoice metadata. An unparsable date leaves the date unset.
func (p Payload) ToMetadata(logger *slog.Logger) entity.InvoiceMetadata {
	if logger == nil {
		logger = slog.Default()
	}
	md := entity.InvoiceMetadata{
		IssuerVATNumber:   p[KeyIssuerVAT],
		AcquirerVATNumber: p[KeyAcquirerVAT],
		AcquirerCountry:   p[KeyAcquirerCountry],
		InvoiceNumber:     p[KeyInvoiceNumber],
		ATCUD:             p[KeyATCUD],
		ValueAddedTax:     p[KeyTaxTotal],
		Total:             p[KeyGrossTotal],
		Items:             []entity.LineItem{},
	}
	if raw, ok := p[KeyInvoiceDate]; ok {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			logger.Warn("invalid invoice date in code", "value", raw, "error", err)
		} else {
			md.InvoiceDate = entity.DateOf(t)
		}
	}
	if sum, ok := p.Subtotal(logger); ok {
		md.Subtotal = sum.String()
	}
	return md
}

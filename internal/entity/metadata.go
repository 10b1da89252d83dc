package entity

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

const (
	isoDate       = "2006-01-02"
	canonicalDate = "02/01/2006"
)

// Date is a calendar date without time of day. The zero value means "unset".
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseISODate parses yyyy-mm-dd; the empty string yields the zero Date.
func ParseISODate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String renders yyyy-mm-dd, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

// Canonical renders dd/mm/yyyy, or "" when unset.
func (d Date) Canonical() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(canonicalDate)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = Date{}
		return nil
	}
	for _, layout := range []string{isoDate, canonicalDate, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = DateOf(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// LineItem is one invoice line.
type LineItem struct {
	ItemName     string `json:"itemName,omitempty"`
	ItemQuantity string `json:"itemQuantity,omitempty"`
	ItemValue    string `json:"itemValue,omitempty"`
	ItemSubtotal string `json:"itemSubtotal,omitempty"`
	TotalAmount  string `json:"totalAmount,omitempty"`
	ArticleRef   string `json:"articleRef,omitempty"`
}

// InvoiceMetadata is the structured result of an extraction.
type InvoiceMetadata struct {
	IssuerVATNumber   string     `json:"issuerVATNumber"`
	AcquirerVATNumber string     `json:"acquirerVATNumber"`
	CompanyName       string     `json:"companyName"`
	Site              string     `json:"site"`
	PhoneNumber       string     `json:"phoneNumber"`
	Email             string     `json:"email"`
	PostalCode        string     `json:"postalCode"`
	AcquirerCountry   string     `json:"acquirerCountry"`
	InvoiceDate       Date       `json:"invoiceDate"`
	InvoiceNumber     string     `json:"invoiceNumber"`
	Address           string     `json:"address"`
	Items             []LineItem `json:"items"`
	DocumentPaidAt    string     `json:"documentPaidAt"`
	Client            string     `json:"client"`
	Currency          string     `json:"currency"`
	DueDate           string     `json:"dueDate"`
	ValueAddedTax     string     `json:"valueAddedTax"`
	Subtotal          string     `json:"subtotal"`
	Total             string     `json:"total"`
	PaymentStatus     string     `json:"paymentStatus"`
	ATCUD             string     `json:"atcud"`
	OriginalFileName  string     `json:"originalFileName"`
	Comment           string     `json:"comment"`
	CostCenter        string     `json:"costCenter"`
}

// IsEmpty reports whether m is structurally equal to the zero value.
// A nil and an empty item list are treated alike.
func (m InvoiceMetadata) IsEmpty() bool {
	if len(m.Items) == 0 {
		m.Items = nil
	}
	return reflect.DeepEqual(m, InvoiceMetadata{})
}

// DefaultMetadata is the canonical "nothing extracted" value: every field empty,
// invoice date set to today and the original file name kept.
func DefaultMetadata(originalFileName string, now time.Time) InvoiceMetadata {
	return InvoiceMetadata{
		InvoiceDate:      DateOf(now),
		Items:            []LineItem{},
		OriginalFileName: originalFileName,
	}
}

// Key returns the duplicate-detection key for m.
func (m InvoiceMetadata) Key() DuplicateKey {
	return DuplicateKey{
		IssuerVATNumber: m.IssuerVATNumber,
		InvoiceDate:     m.InvoiceDate.String(),
		InvoiceNumber:   m.InvoiceNumber,
	}
}

// DuplicateKey identifies an invoice for de-duplication.
type DuplicateKey struct {
	IssuerVATNumber string
	InvoiceDate     string // yyyy-mm-dd
	InvoiceNumber   string
}

// Blank reports whether k has neither an issuer VAT number nor an invoice
// number. That is the shape of default metadata, and such keys identify
// nothing, so they never take part in de-duplication.
func (k DuplicateKey) Blank() bool {
	return k.IssuerVATNumber == "" && k.InvoiceNumber == ""
}

func (k DuplicateKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.IssuerVATNumber, k.InvoiceDate, k.InvoiceNumber)
}

package layout

import (
	"strings"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// FieldKind is the closed set of metadata fields a layout rule can fill.
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldIssuerVAT
	FieldAcquirerVAT
	FieldCompanyName
	FieldSite
	FieldPhoneNumber
	FieldEmail
	FieldAddress
	FieldPostalCode
	FieldAcquirerCountry
	FieldInvoiceDate
	FieldInvoiceNumber
	FieldDocumentPaidAt
	FieldClient
	FieldCurrency
	FieldDueDate
	FieldValueAddedTax
	FieldSubtotal
	FieldTotal
	FieldPaymentStatus
	FieldItemQuantity
	FieldItemValue
	FieldItemSubtotal
	FieldItemTotalAmount
	FieldItemArticleRef
	FieldItemName
)

type fieldSpec struct {
	name string // display name used in layout documents
	key  string // metadata JSON key, accepted as an alias
}

var fieldSpecs = map[FieldKind]fieldSpec{
	FieldIssuerVAT:       {"Issuer VAT number", "issuerVATNumber"},
	FieldAcquirerVAT:     {"Acquirer VAT number", "acquirerVATNumber"},
	FieldCompanyName:     {"Company Name", "companyName"},
	FieldSite:            {"Site", "site"},
	FieldPhoneNumber:     {"Phone Number", "phoneNumber"},
	FieldEmail:           {"E-mail", "email"},
	FieldAddress:         {"Address", "address"},
	FieldPostalCode:      {"Postal Code", "postalCode"},
	FieldAcquirerCountry: {"Acquirer country", "acquirerCountry"},
	FieldInvoiceDate:     {"Invoice Date", "invoiceDate"},
	FieldInvoiceNumber:   {"Invoice Number", "invoiceNumber"},
	FieldDocumentPaidAt:  {"Document paid at", "documentPaidAt"},
	FieldClient:          {"Client", "client"},
	FieldCurrency:        {"Currency", "currency"},
	FieldDueDate:         {"Due Date", "dueDate"},
	FieldValueAddedTax:   {"Value-Added Tax", "valueAddedTax"},
	FieldSubtotal:        {"Subtotal", "subtotal"},
	FieldTotal:           {"Total", "total"},
	FieldPaymentStatus:   {"Payment Status", "paymentStatus"},
	FieldItemQuantity:    {"Item Quantity", "itemQuantity"},
	FieldItemValue:       {"Item Value", "itemValue"},
	FieldItemSubtotal:    {"Item Subtotal", "itemSubtotal"},
	FieldItemTotalAmount: {"Total Amount", "totalAmount"},
	FieldItemArticleRef:  {"Article Ref", "articleRef"},
	FieldItemName:        {"Item Name", "itemName"},
}

var kindByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, 2*len(fieldSpecs))
	for k, s := range fieldSpecs {
		m[strings.ToLower(s.name)] = k
		m[strings.ToLower(s.key)] = k
	}
	return m
}()

// KindOf resolves a rule's key (preferred) or display name, case-insensitively.
func KindOf(name, key string) FieldKind {
	if k, ok := kindByName[strings.ToLower(strings.TrimSpace(key))]; ok && key != "" {
		return k
	}
	return kindByName[strings.ToLower(strings.TrimSpace(name))]
}

func (k FieldKind) String() string {
	if s, ok := fieldSpecs[k]; ok {
		return s.name
	}
	return "unknown"
}

// IsItem reports whether k fills a line item rather than a header field.
func (k FieldKind) IsItem() bool {
	return k >= FieldItemQuantity && k <= FieldItemName
}

// headerSetters holds every header field that is stored verbatim.
// VAT numbers and the invoice date need extra handling and are set by the evaluator.
var headerSetters = map[FieldKind]func(*entity.InvoiceMetadata, string){
	FieldCompanyName:     func(m *entity.InvoiceMetadata, v string) { m.CompanyName = v },
	FieldSite:            func(m *entity.InvoiceMetadata, v string) { m.Site = v },
	FieldPhoneNumber:     func(m *entity.InvoiceMetadata, v string) { m.PhoneNumber = v },
	FieldEmail:           func(m *entity.InvoiceMetadata, v string) { m.Email = v },
	FieldAddress:         func(m *entity.InvoiceMetadata, v string) { m.Address = v },
	FieldPostalCode:      func(m *entity.InvoiceMetadata, v string) { m.PostalCode = v },
	FieldAcquirerCountry: func(m *entity.InvoiceMetadata, v string) { m.AcquirerCountry = v },
	FieldInvoiceNumber:   func(m *entity.InvoiceMetadata, v string) { m.InvoiceNumber = v },
	FieldDocumentPaidAt:  func(m *entity.InvoiceMetadata, v string) { m.DocumentPaidAt = v },
	FieldClient:          func(m *entity.InvoiceMetadata, v string) { m.Client = v },
	FieldCurrency:        func(m *entity.InvoiceMetadata, v string) { m.Currency = v },
	FieldDueDate:         func(m *entity.InvoiceMetadata, v string) { m.DueDate = v },
	FieldValueAddedTax:   func(m *entity.InvoiceMetadata, v string) { m.ValueAddedTax = v },
	FieldSubtotal:        func(m *entity.InvoiceMetadata, v string) { m.Subtotal = v },
	FieldTotal:           func(m *entity.InvoiceMetadata, v string) { m.Total = v },
	FieldPaymentStatus:   func(m *entity.InvoiceMetadata, v string) { m.PaymentStatus = v },
}

var itemSetters = map[FieldKind]func(*entity.LineItem, string){
	FieldItemQuantity:    func(i *entity.LineItem, v string) { i.ItemQuantity = v },
	FieldItemValue:       func(i *entity.LineItem, v string) { i.ItemValue = v },
	FieldItemSubtotal:    func(i *entity.LineItem, v string) { i.ItemSubtotal = v },
	FieldItemTotalAmount: func(i *entity.LineItem, v string) { i.TotalAmount = v },
	FieldItemArticleRef:  func(i *entity.LineItem, v string) { i.ArticleRef = v },
	FieldItemName:        func(i *entity.LineItem, v string) { i.ItemName = v },
}

// StripCountryPrefix removes a leading two-letter country code from a VAT number.
func StripCountryPrefix(vat string) string {
	vat = strings.TrimSpace(vat)
	if len(vat) > 2 && isUpperASCII(vat[0]) && isUpperASCII(vat[1]) {
		return strings.TrimSpace(vat[2:])
	}
	return vat
}

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

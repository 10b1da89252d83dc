package atcode

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParse_ScenarioPayload(t *testing.T) {
	p := Parse("A:123456789*F:20240115*G:FT 1/1*O:123.45")
	assert.True(t, p.IsInvoice())

	md := p.ToMetadata(quiet)
	assert.Equal(t, "123456789", md.IssuerVATNumber)
	assert.Equal(t, "2024-01-15", md.InvoiceDate.String())
	assert.Equal(t, "FT 1/1", md.InvoiceNumber)
	assert.Equal(t, "123.45", md.Total)
	assert.Empty(t, md.Subtotal)
	assert.NotNil(t, md.Items)
}

func TestParse_FullPayload(t *testing.T) {
	text := "A:500000000*B:123456789*C:PT*D:FT*E:N*F:20231231*G:FT A/42*H:ABCD1234-42*I1:PT*I2:1.00*I3:10.00*I5:20.50*I7:100.00*I8:23.00*N:30.00*O:161.50*Q:abcd*R:1234"
	md := Parse(text).ToMetadata(quiet)

	assert.Equal(t, "500000000", md.IssuerVATNumber)
	assert.Equal(t, "123456789", md.AcquirerVATNumber)
	assert.Equal(t, "PT", md.AcquirerCountry)
	assert.Equal(t, "ABCD1234-42", md.ATCUD)
	assert.Equal(t, "30.00", md.ValueAddedTax)
	assert.Equal(t, "131.5", md.Subtotal)
}

func TestParse_DropsMalformedPairs(t *testing.T) {
	p := Parse("A:1*junk*B:*C:x:y*F:20240101")
	assert.Equal(t, Payload{"A": "1", "F": "20240101"}, p)
}

func TestIsInvoicePayload_RequiresVATAndDate(t *testing.T) {
	cases := map[string]bool{
		"A:1*F:20240101":   true,
		"A:1*G:FT 1":       false,
		"F:20240101*G:X":   false,
		"https://acme.com": false,
		"":                 false,
	}
	for text, want := range cases {
		assert.Equal(t, want, IsInvoicePayload(text), text)
	}
}

func TestSubtotal_SkipsUnparsableValues(t *testing.T) {
	sum, ok := Parse("A:1*F:20240101*I2:10.10*I3:abc*I7:0.90").Subtotal(quiet)
	assert.True(t, ok)
	assert.Equal(t, "11", sum.String())
}

func TestToMetadata_BadDateLeavesDateUnset(t *testing.T) {
	md := Parse("A:1*F:2024-01-01").ToMetadata(quiet)
	assert.True(t, md.InvoiceDate.IsZero())
	assert.Equal(t, "1", md.IssuerVATNumber)
}

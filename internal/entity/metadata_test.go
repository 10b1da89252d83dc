package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceMetadataIsEmpty(t *testing.T) {
	assert.True(t, InvoiceMetadata{}.IsEmpty())
	assert.True(t, InvoiceMetadata{Items: []LineItem{}}.IsEmpty())
	assert.False(t, InvoiceMetadata{InvoiceNumber: "INV-042"}.IsEmpty())
	assert.False(t, InvoiceMetadata{Items: []LineItem{{ItemName: "x"}}}.IsEmpty())
}

func TestDefaultMetadata(t *testing.T) {
	now := time.Date(2024, 3, 9, 17, 4, 0, 0, time.UTC)
	md := DefaultMetadata("scan.png", now)

	assert.Equal(t, "scan.png", md.OriginalFileName)
	assert.Equal(t, "2024-03-09", md.InvoiceDate.String())
	assert.NotNil(t, md.Items)
	assert.Empty(t, md.Items)
	assert.Empty(t, md.IssuerVATNumber)
	assert.False(t, md.IsEmpty())
}

func TestDateJSON(t *testing.T) {
	var md InvoiceMetadata
	require.NoError(t, json.Unmarshal([]byte(`{"invoiceDate":"15/01/2024","invoiceNumber":"FT 1/1"}`), &md))
	assert.Equal(t, NewDate(2024, time.January, 15), md.InvoiceDate)

	out, err := json.Marshal(md)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"invoiceDate":"2024-01-15"`)

	require.NoError(t, json.Unmarshal([]byte(`{"invoiceDate":null}`), &md))
	assert.True(t, md.InvoiceDate.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`{"invoiceDate":"someday"}`), &md))
}

func TestDuplicateKey(t *testing.T) {
	md := InvoiceMetadata{IssuerVATNumber: "123456789", InvoiceDate: NewDate(2024, 1, 15), InvoiceNumber: "FT 1/1"}
	assert.Equal(t, DuplicateKey{"123456789", "2024-01-15", "FT 1/1"}, md.Key())
	assert.Equal(t, "123456789|2024-01-15|FT 1/1", md.Key().String())
	assert.False(t, md.Key().Blank())
	assert.False(t, DuplicateKey{IssuerVATNumber: "123456789", InvoiceDate: "2024-01-15"}.Blank())
	assert.True(t, DefaultMetadata("scan.png", time.Now()).Key().Blank())
}

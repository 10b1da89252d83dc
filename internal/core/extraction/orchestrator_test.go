package extraction

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/layout"
	"github.com/joseph-ayodele/invoice-intake/internal/core/qrcode"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeText struct {
	text      string
	err       error
	pages     int
	rasterErr error
	langs     []string
}

func (f *fakeText) ImageText(_ context.Context, _ []byte, lang string) (string, error) {
	f.langs = append(f.langs, lang)
	return f.text, f.err
}

func (f *fakeText) PDFText(_ context.Context, _ []byte, lang string) (string, error) {
	f.langs = append(f.langs, "pdf:"+lang)
	return f.text, f.err
}

func (f *fakeText) RasterizePDF(context.Context, []byte) ([]image.Image, error) {
	if f.rasterErr != nil {
		return nil, f.rasterErr
	}
	out := make([]image.Image, f.pages)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, 4, 4))
	}
	return out, nil
}

type fakeCodes struct {
	byPage map[string][]string
	seen   []string
}

func (f *fakeCodes) Decode(_ context.Context, p qrcode.Page) []string {
	f.seen = append(f.seen, p.Name)
	return f.byPage[p.Name]
}

type fakeLayouts map[string]entity.Layout

func (f fakeLayouts) Resolve(_ context.Context, nameOrID string) (*entity.Layout, error) {
	if l, ok := f[nameOrID]; ok {
		return &l, nil
	}
	return nil, common.NotFound("layout", nameOrID)
}

type fixedNames string

func (n fixedNames) CompanyName(context.Context, string) string { return string(n) }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

var acme = entity.Layout{
	Name:       "ACME",
	Language:   "por",
	DateFormat: "dd/MM/yyyy",
	Fields: []entity.FieldRule{
		{Name: "Invoice Number", Regex: `Invoice No: (\S+)`},
		{Name: "Issuer VAT Number", Regex: `NIF:\s*(\w+)`},
	},
}

func newOrchestrator(text *fakeText, codes *fakeCodes, opts ...Option) *Orchestrator {
	ev := layout.NewEvaluator(nil, nil, quiet)
	return NewOrchestrator(text, codes, fakeLayouts{"ACME": acme}, ev, quiet, opts...)
}

func TestClassify(t *testing.T) {
	ft, err := Classify("scan.JPG")
	require.NoError(t, err)
	assert.Equal(t, constants.FileTypeImage, ft)

	ft, err = Classify("invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.FileTypePDF, ft)

	for _, name := range []string{"README", "trailing.", "notes.txt", ""} {
		_, err := Classify(name)
		assert.Equal(t, common.KindInput, common.KindOf(err), name)
	}
}

func TestExtract_CodePathOneRecordPerCode(t *testing.T) {
	codes := &fakeCodes{byPage: map[string][]string{
		"scan.png": {"A:123456789*F:20240115*G:FT 1/1*O:123.45", "A:987654321*F:20240201*G:FT 2/9"},
	}}
	o := newOrchestrator(&fakeText{}, codes, WithCompanyNames(fixedNames("ACME LDA")))

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "PT")
	require.NoError(t, err)
	assert.True(t, res.CodePath)
	assert.Equal(t, "PT", res.Layout)
	require.Len(t, res.Records, 2)

	first := res.Records[0].Metadata
	assert.True(t, res.Records[0].Extracted)
	assert.Equal(t, "123456789", first.IssuerVATNumber)
	assert.Equal(t, "2024-01-15", first.InvoiceDate.String())
	assert.Equal(t, "FT 1/1", first.InvoiceNumber)
	assert.Equal(t, "123.45", first.Total)
	assert.Equal(t, "ACME LDA", first.CompanyName)
	assert.Equal(t, "scan.png", first.OriginalFileName)
	assert.Equal(t, "987654321", res.Records[1].Metadata.IssuerVATNumber)
}

func TestExtract_ForeignCodeKeepsUpload(t *testing.T) {
	codes := &fakeCodes{byPage: map[string][]string{"scan.png": {"https://example.com/promo"}}}
	o := newOrchestrator(&fakeText{}, codes)

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	md := res.Records[0].Metadata
	assert.Empty(t, md.IssuerVATNumber)
	assert.Equal(t, "scan.png", md.OriginalFileName)
	assert.NotNil(t, md.Items)
	assert.False(t, md.InvoiceDate.IsZero())
}

func TestExtract_NoCodesYieldsOneDefaultRecord(t *testing.T) {
	o := newOrchestrator(&fakeText{}, &fakeCodes{})

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "pt")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Extracted)
	assert.Equal(t, "scan.png", res.Records[0].Metadata.OriginalFileName)
}

func TestExtract_UndecodableImageDegrades(t *testing.T) {
	o := newOrchestrator(&fakeText{}, &fakeCodes{})

	res, err := o.Extract(context.Background(), "scan.jpg", []byte("not an image"), "PT")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Extracted)
}

func TestExtract_PDFPagesAreDecodedSeparately(t *testing.T) {
	codes := &fakeCodes{byPage: map[string][]string{
		"inv.pdf#2": {"A:123456789*F:20240115*G:FT 1/1"},
	}}
	o := newOrchestrator(&fakeText{pages: 3}, codes)

	res, err := o.Extract(context.Background(), "inv.pdf", []byte("%PDF-1.4"), "PT")
	require.NoError(t, err)
	assert.Equal(t, []string{"inv.pdf#1", "inv.pdf#2", "inv.pdf#3"}, codes.seen)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "FT 1/1", res.Records[0].Metadata.InvoiceNumber)
}

func TestExtract_RasterFailureDegrades(t *testing.T) {
	o := newOrchestrator(&fakeText{rasterErr: errors.New("pdftoppm missing")}, &fakeCodes{})

	res, err := o.Extract(context.Background(), "inv.pdf", []byte("%PDF-1.4"), "PT")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Extracted)
}

func TestExtract_OCRPathUsesLayoutRules(t *testing.T) {
	text := &fakeText{text: "ACME Lda NIF: PT500000000 Invoice No: INV-042"}
	o := newOrchestrator(text, &fakeCodes{})

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "ACME")
	require.NoError(t, err)
	assert.False(t, res.CodePath)
	assert.Equal(t, "ACME", res.Layout)
	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Extracted)
	assert.Equal(t, "INV-042", res.Records[0].Metadata.InvoiceNumber)
	assert.Equal(t, "500000000", res.Records[0].Metadata.IssuerVATNumber)
	assert.Equal(t, []string{"por"}, text.langs)

	_, err = o.Extract(context.Background(), "inv.pdf", []byte("%PDF"), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "pdf:por", text.langs[1])
}

func TestExtract_OCRFailureDegrades(t *testing.T) {
	o := newOrchestrator(&fakeText{err: errors.New("tesseract crashed")}, &fakeCodes{})

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "ACME")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Extracted)
	assert.Equal(t, "scan.png", res.Records[0].Metadata.OriginalFileName)
}

func TestExtract_ClientErrors(t *testing.T) {
	o := newOrchestrator(&fakeText{}, &fakeCodes{})
	ctx := context.Background()

	_, err := o.Extract(ctx, "scan", []byte("x"), "PT")
	assert.Equal(t, common.KindInput, common.KindOf(err))

	_, err = o.Extract(ctx, "scan.png", nil, "PT")
	assert.Equal(t, common.KindInput, common.KindOf(err))

	_, err = o.Extract(ctx, "scan.png", []byte("x"), "Nope")
	assert.Equal(t, common.KindInput, common.KindOf(err))
}

func TestWithDefaultLayout(t *testing.T) {
	o := newOrchestrator(&fakeText{text: "Invoice No: A1"}, &fakeCodes{}, WithDefaultLayout("ACME"))
	assert.Equal(t, "ACME", o.DefaultLayout())

	res, err := o.Extract(context.Background(), "scan.png", pngBytes(t), "ACME")
	require.NoError(t, err)
	assert.True(t, res.CodePath)
}

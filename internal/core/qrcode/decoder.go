// Package qrcode decodes the QR codes printed on invoices, repairing degraded
// scans and falling back to a remote decode service when nothing is found locally.
package qrcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/joseph-ayodele/invoice-intake/internal/core/atcode"
	"github.com/joseph-ayodele/invoice-intake/internal/core/repair"
)

// Fallback is the last-resort remote decoder.
type Fallback interface {
	Decode(ctx context.Context, filename string, image []byte) ([]string, error)
}

// Page is one raster to decode. Raw holds the original encoded bytes when the
// page came straight from an uploaded image; otherwise the raster is re-encoded
// for the remote fallback.
type Page struct {
	Name  string
	Image image.Image
	Raw   []byte
}

type Decoder struct {
	reader   Reader
	fallback Fallback
	repair   func(image.Image) *image.Gray
	logger   *slog.Logger
}

// NewDecoder wires a reader with an optional remote fallback (nil disables it).
func NewDecoder(reader Reader, fallback Fallback, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{reader: reader, fallback: fallback, repair: repair.Repair, logger: logger}
}

// Decode returns every payload found on the page. It never fails; reader,
// repair and remote problems are logged and yield fewer results.
func (d *Decoder) Decode(ctx context.Context, page Page) []string {
	texts := d.read(page.Image, page.Name)

	if anyForeign(texts) {
		d.logger.Info("qrcode.repair", "file", page.Name, "codes", len(texts))
		repaired := d.read(d.repair(page.Image), page.Name)
		if len(repaired) > 0 {
			texts = repaired
		}
	}

	if len(texts) == 0 && d.fallback != nil {
		texts = d.remote(ctx, page)
	}
	d.logger.Info("qrcode.decoded", "file", page.Name, "codes", len(texts))
	return texts
}

func (d *Decoder) read(img image.Image, name string) []string {
	if img == nil {
		return nil
	}
	texts, err := d.reader.Read(img)
	if err != nil {
		d.logger.Debug("qrcode.read_empty", "file", name, "error", err)
		return nil
	}
	return texts
}

func (d *Decoder) remote(ctx context.Context, page Page) []string {
	data := page.Raw
	if data == nil {
		var buf bytes.Buffer
		if page.Image == nil {
			return nil
		}
		if err := jpeg.Encode(&buf, page.Image, &jpeg.Options{Quality: 90}); err != nil {
			d.logger.Warn("qrcode.remote_encode_error", "file", page.Name, "error", err)
			return nil
		}
		data = buf.Bytes()
	}

	texts, err := d.fallback.Decode(ctx, page.Name, data)
	switch {
	case errors.Is(err, ErrNoContent):
		d.logger.Warn("qrcode.remote_no_content", "file", page.Name, "error", err)
		return nil
	case err != nil:
		d.logger.Error("qrcode.remote_unavailable", "file", page.Name, "error", err)
		return nil
	}
	return texts
}

func anyForeign(texts []string) bool {
	for _, t := range texts {
		if !atcode.IsInvoicePayload(t) {
			return true
		}
	}
	return false
}

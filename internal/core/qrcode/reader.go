package qrcode

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
)

// Reader finds every QR code in an image and returns their texts.
type Reader interface {
	Read(img image.Image) ([]string, error)
}

// ZXingReader is the in-process multi-symbol reader.
type ZXingReader struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewZXingReader() *ZXingReader {
	return &ZXingReader{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Read returns the QR-format results only. "Nothing found" surfaces as an error
// from the underlying reader and is reported as such.
func (r *ZXingReader) Read(img image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}
	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, r.hints)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, res := range results {
		if res == nil || res.GetBarcodeFormat() != gozxing.BarcodeFormat_QR_CODE {
			continue
		}
		if txt := res.GetText(); txt != "" {
			texts = append(texts, txt)
		}
	}
	return texts, nil
}

package extraction

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// Classify derives the file type from the filename extension alone.
func Classify(filename string) (constants.FileType, error) {
	ext := filepath.Ext(strings.TrimSpace(filename))
	if ext == "" || ext == "." {
		return "", common.InputError("file %q has no extension", filename)
	}
	ft, ok := constants.TypeForExt(ext)
	if !ok {
		return "", common.InputError("unsupported file type %q", constants.NormalizeExt(ext))
	}
	return ft, nil
}

// UsesCodePath reports whether layoutName selects QR code decoding rather than
// OCR with field rules.
func UsesCodePath(layoutName, defaultName string) bool {
	return layoutName == "" || strings.EqualFold(strings.TrimSpace(layoutName), defaultName)
}

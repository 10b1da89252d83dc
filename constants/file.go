package constants

import "strings"

// FileType is the coarse kind of an uploaded document.
type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeImage FileType = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for invoice uploads.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"png":  FileTypeImage,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// TypeForExt reports the file type for a normalized extension.
func TypeForExt(ext string) (FileType, bool) {
	ft, ok := AllowedExtensions[NormalizeExt(ext)]
	return ft, ok
}

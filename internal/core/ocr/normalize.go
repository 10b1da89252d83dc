package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Normalize unifies line endings and drops ruler lines made of dashes or underscores.
// Line breaks are kept.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Flatten joins OCR output into one line: newlines become spaces and runs of
// whitespace collapse to a single space. Layout rules for scanned images are
// written against this form.
func Flatten(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

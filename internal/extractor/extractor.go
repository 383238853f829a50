// Package extractor pulls metadata, text and cover images out of ebook files.
package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

// Format identifies a supported ebook format.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatEPUB
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatEPUB:
		return "epub"
	default:
		return "unsupported"
	}
}

// FormatForPath maps a file extension to its format variant.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".epub":
		return FormatEPUB
	default:
		return FormatUnsupported
	}
}

// Extractor extracts metadata and text from ebook files.
type Extractor struct {
	maxTextLength int
}

// New creates an extractor that truncates extracted text at maxTextLength.
func New(maxTextLength int) *Extractor {
	if maxTextLength <= 0 {
		maxTextLength = 50000
	}
	return &Extractor{maxTextLength: maxTextLength}
}

// Extract dispatches to a format-specific extractor. It never fails: any
// parsing error degrades to a minimal record with the filename stem as title.
func (e *Extractor) Extract(path string) models.ExtractedMeta {
	switch FormatForPath(path) {
	case FormatPDF:
		return e.extractPDF(path)
	case FormatEPUB:
		return e.extractEPUB(path)
	default:
		slog.Warn("unsupported format", "path", path)
		return models.ExtractedMeta{Title: FilenameStem(path), Author: "Unknown"}
	}
}

// FileHash computes the SHA-256 digest of a file's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FilenameStem returns the file name without directory or extension.
func FilenameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// minimalMeta is the degraded record produced when extraction fails.
func minimalMeta(path string) models.ExtractedMeta {
	return models.ExtractedMeta{Title: FilenameStem(path), Author: "Unknown"}
}

// truncateText hard-truncates s to at most max bytes without splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

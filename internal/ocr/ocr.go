// Package ocr detects scanned PDFs and recovers their text via Tesseract.
package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
)

// recognitionDPI renders pages at roughly print resolution for the OCR engine.
const recognitionDPI = 300

// Processor runs optical text recognition over scanned PDF pages.
type Processor struct {
	enabled   bool
	languages []string
	maxPages  int
	threshold float64
}

// NewProcessor creates a processor from configuration.
func NewProcessor(cfg config.Config) *Processor {
	return &Processor{
		enabled:   cfg.OCREnabled,
		languages: strings.Split(cfg.OCRLanguage, "+"),
		maxPages:  cfg.OCRMaxPages,
		threshold: cfg.ScannedTextThreshold,
	}
}

// Enabled reports whether recognition is available.
func (p *Processor) Enabled() bool { return p.enabled }

// IsScanned reports whether a PDF appears to be scanned, judged by the
// density of extractable characters per page. Zero pages is never scanned.
func (p *Processor) IsScanned(path, textContent string, pageCount int) bool {
	if pageCount <= 0 {
		return false
	}

	// A normal page has ~2000-3000 chars; scanned pages have very few.
	charsPerPage := float64(len(textContent)) / float64(pageCount)
	scanned := charsPerPage < 100*p.threshold
	if scanned {
		slog.Info("PDF appears scanned",
			"file", filepath.Base(path),
			"chars_per_page", fmt.Sprintf("%.1f", charsPerPage))
	}
	return scanned
}

// Recognize renders up to maxPages pages and runs text recognition on each,
// stopping once maxTextLength characters have been accumulated. Returns an
// empty string when recognition is disabled.
func (p *Processor) Recognize(path string, maxTextLength int) (string, error) {
	if !p.enabled {
		slog.Info("OCR is disabled, skipping", "file", filepath.Base(path))
		return "", nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(p.languages...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	// Automatic page segmentation with orientation detection.
	if err := client.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}

	pages := doc.NumPage()
	if pages > p.maxPages {
		pages = p.maxPages
	}
	slog.Info("running OCR", "file", filepath.Base(path), "pages", pages)

	var parts []string
	total := 0
	for n := 0; n < pages; n++ {
		img, err := doc.ImageDPI(n, recognitionDPI)
		if err != nil {
			slog.Warn("failed to render page for OCR", "file", filepath.Base(path), "page", n, "error", err)
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			slog.Warn("failed to encode page image", "file", filepath.Base(path), "page", n, "error", err)
			continue
		}
		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			return "", fmt.Errorf("set page image: %w", err)
		}

		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("recognize page %d: %w", n, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		total += len(text)
		if total >= maxTextLength {
			break
		}
	}

	result := strings.Join(parts, "\n\n")
	if len(result) > maxTextLength {
		result = result[:maxTextLength]
	}
	slog.Info("OCR finished", "file", filepath.Base(path), "chars", len(result))
	return result, nil
}

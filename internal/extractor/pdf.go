package extractor

import (
	"bytes"
	"image/jpeg"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

// coverDPI renders the first page at 2x the PDF's native 72 DPI.
const coverDPI = 144

// extractPDF reads document metadata, page text and a first-page cover image.
func (e *Extractor) extractPDF(path string) models.ExtractedMeta {
	meta := minimalMeta(path)

	doc, err := fitz.New(path)
	if err != nil {
		slog.Error("failed to open PDF", "path", path, "error", err)
		return meta
	}
	defer doc.Close()

	info := doc.Metadata()
	if title := strings.TrimSpace(info["title"]); title != "" {
		meta.Title = title
	}
	if author := strings.TrimSpace(info["author"]); author != "" {
		meta.Author = author
	}
	if subject := strings.TrimSpace(info["subject"]); subject != "" {
		meta.Description = &subject
	}
	if year, ok := pdfCreationYear(info["creationDate"]); ok {
		meta.Year = &year
	}

	pageCount := doc.NumPage()
	meta.PageCount = &pageCount

	var parts []string
	total := 0
	for n := 0; n < pageCount; n++ {
		pageText, err := doc.Text(n)
		if err != nil {
			slog.Debug("failed to extract page text", "path", path, "page", n, "error", err)
			continue
		}
		parts = append(parts, pageText)
		total += len(pageText)
		if total >= e.maxTextLength {
			break
		}
	}
	meta.TextContent = truncateText(strings.Join(parts, "\n"), e.maxTextLength)

	// Cover is best-effort; a render failure never fails the extraction.
	if pageCount > 0 {
		img, err := doc.ImageDPI(0, coverDPI)
		if err != nil {
			slog.Warn("failed to render PDF cover", "path", path, "error", err)
		} else {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
				slog.Warn("failed to encode PDF cover", "path", path, "error", err)
			} else {
				meta.CoverImage = buf.Bytes()
				meta.CoverExt = ".jpg"
			}
		}
	}

	return meta
}

// pdfCreationYear parses the year out of a PDF date string ("D:YYYYMMDDHHmmSS").
func pdfCreationYear(date string) (int, bool) {
	date = strings.TrimPrefix(date, "D:")
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1000 || year > 9999 {
		return 0, false
	}
	return year, true
}

package extractor

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

// container.xml points at the OPF package document.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfPackage struct {
	Metadata struct {
		Titles       []string `xml:"title"`
		Creators     []string `xml:"creator"`
		Publishers   []string `xml:"publisher"`
		Languages    []string `xml:"language"`
		Descriptions []string `xml:"description"`
		Identifiers  []string `xml:"identifier"`
		Dates        []string `xml:"date"`
	} `xml:"metadata"`
	Manifest struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// extractEPUB reads OPF package metadata, spine text and a cover image.
func (e *Extractor) extractEPUB(filePath string) models.ExtractedMeta {
	meta := minimalMeta(filePath)

	zr, err := zip.OpenReader(filePath)
	if err != nil {
		slog.Error("failed to open EPUB", "path", filePath, "error", err)
		return meta
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := findOPFPath(files)
	if err != nil {
		slog.Error("failed to locate EPUB package document", "path", filePath, "error", err)
		return meta
	}

	var pkg opfPackage
	if err := readXML(files[opfPath], &pkg); err != nil {
		slog.Error("failed to parse EPUB package document", "path", filePath, "error", err)
		return meta
	}

	md := pkg.Metadata
	if len(md.Titles) > 0 && strings.TrimSpace(md.Titles[0]) != "" {
		meta.Title = strings.TrimSpace(md.Titles[0])
	}
	if len(md.Creators) > 0 && strings.TrimSpace(md.Creators[0]) != "" {
		meta.Author = strings.TrimSpace(md.Creators[0])
	}
	if len(md.Publishers) > 0 {
		meta.Publisher = models.StrPtr(strings.TrimSpace(md.Publishers[0]))
	}
	if len(md.Languages) > 0 {
		meta.Language = models.StrPtr(strings.TrimSpace(md.Languages[0]))
	}
	if len(md.Descriptions) > 0 {
		meta.Description = models.StrPtr(strings.TrimSpace(md.Descriptions[0]))
	}
	if isbn := findISBN(md.Identifiers); isbn != "" {
		meta.ISBN = &isbn
	}
	if len(md.Dates) > 0 {
		if year, ok := epubYear(md.Dates[0]); ok {
			meta.Year = &year
		}
	}

	opfDir := path.Dir(opfPath)
	itemsByID := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		itemsByID[item.ID] = item
	}

	// Body text in spine order, HTML tags stripped.
	var parts []string
	total := 0
	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := itemsByID[ref.IDRef]
		if !ok {
			continue
		}
		f, ok := files[resolveHref(opfDir, item.Href)]
		if !ok {
			continue
		}
		text := strings.TrimSpace(stripHTMLFile(f))
		if text == "" {
			continue
		}
		parts = append(parts, text)
		total += len(text)
		if total >= e.maxTextLength {
			break
		}
	}
	meta.TextContent = truncateText(strings.Join(parts, "\n"), e.maxTextLength)

	// Cover: filename containing "cover", else the first image item.
	if img := chooseCover(pkg.Manifest.Items); img != nil {
		if f, ok := files[resolveHref(opfDir, img.Href)]; ok {
			data, err := readAll(f)
			if err != nil {
				slog.Warn("failed to read EPUB cover", "path", filePath, "error", err)
			} else {
				meta.CoverImage = data
				meta.CoverExt = coverExt(img.Href)
			}
		}
	}

	return meta
}

func findOPFPath(files map[string]*zip.File) (string, error) {
	f, ok := files["META-INF/container.xml"]
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	var c epubContainer
	if err := readXML(f, &c); err != nil {
		return "", err
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			if _, ok := files[rf.FullPath]; ok {
				return rf.FullPath, nil
			}
		}
	}
	return "", io.ErrUnexpectedEOF
}

func readXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func resolveHref(opfDir, href string) string {
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, href)
}

// findISBN picks the identifier that looks like an ISBN: digits only after
// stripping dashes and spaces, with length 10 or 13.
func findISBN(identifiers []string) string {
	for _, ident := range identifiers {
		ident = strings.TrimSpace(ident)
		clean := strings.NewReplacer("-", "", " ", "").Replace(ident)
		if len(clean) != 10 && len(clean) != 13 {
			continue
		}
		if isDigits(clean) {
			return ident
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func epubYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

func chooseCover(items []opfItem) *opfItem {
	var first *opfItem
	for i := range items {
		item := &items[i]
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		if strings.Contains(strings.ToLower(item.Href), "cover") {
			return item
		}
		if first == nil {
			first = item
		}
	}
	return first
}

func coverExt(href string) string {
	if strings.HasSuffix(strings.ToLower(href), ".png") {
		return ".png"
	}
	return ".jpg"
}

// stripHTMLFile extracts visible text from an XHTML document, excluding
// script and style element bodies.
func stripHTMLFile(f *zip.File) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	return StripHTML(rc)
}

// StripHTML returns the text content of an HTML document with tags removed.
func StripHTML(r io.Reader) string {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isSkippedTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isSkippedTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				text := strings.TrimSpace(string(z.Text()))
				if text != "" {
					if b.Len() > 0 {
						b.WriteByte(' ')
					}
					b.WriteString(text)
				}
			}
		}
	}
}

func isSkippedTag(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}

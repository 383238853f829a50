package extractor

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const contentOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>Learning Go</dc:title>
    <dc:creator>Jane Gopher</dc:creator>
    <dc:publisher>Example Press</dc:publisher>
    <dc:language>en</dc:language>
    <dc:description>A book about Go.</dc:description>
    <dc:identifier>urn:uuid:not-an-isbn</dc:identifier>
    <dc:identifier>978-0-134-19044-0</dc:identifier>
    <dc:date>2021-03-01</dc:date>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="img1" href="images/photo.jpg" media-type="image/jpeg"/>
    <item id="img2" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`

const chapterXHTML = `<html><head><style>p { color: red; }</style>
<script>var x = 1;</script></head>
<body><h1>Chapter One</h1><p>Hello <b>world</b> of Go.</p></body></html>`

func writeEPUB(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"META-INF/container.xml":  containerXML,
		"OEBPS/content.opf":       contentOPF,
		"OEBPS/ch1.xhtml":         chapterXHTML,
		"OEBPS/images/photo.jpg":  "jpegdata",
		"OEBPS/images/cover.png":  "pngdata",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "learning-go.epub")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractEPUB(t *testing.T) {
	path := writeEPUB(t)
	meta := New(50000).Extract(path)

	assert.Equal(t, "Learning Go", meta.Title)
	assert.Equal(t, "Jane Gopher", meta.Author)
	require.NotNil(t, meta.Publisher)
	assert.Equal(t, "Example Press", *meta.Publisher)
	require.NotNil(t, meta.Language)
	assert.Equal(t, "en", *meta.Language)
	require.NotNil(t, meta.ISBN)
	assert.Equal(t, "978-0-134-19044-0", *meta.ISBN)
	require.NotNil(t, meta.Year)
	assert.Equal(t, 2021, *meta.Year)

	// Tags stripped, script/style bodies excluded.
	assert.Contains(t, meta.TextContent, "Chapter One")
	assert.Contains(t, meta.TextContent, "Hello world of Go.")
	assert.NotContains(t, meta.TextContent, "var x")
	assert.NotContains(t, meta.TextContent, "color: red")
}

func TestExtractEPUBCoverPrefersCoverName(t *testing.T) {
	path := writeEPUB(t)
	meta := New(50000).Extract(path)

	assert.Equal(t, []byte("pngdata"), meta.CoverImage)
	assert.Equal(t, ".png", meta.CoverExt)
}

func TestExtractEPUBTextTruncation(t *testing.T) {
	path := writeEPUB(t)
	meta := New(10).Extract(path)
	assert.LessOrEqual(t, len(meta.TextContent), 10)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	meta := New(50000).Extract("/library/some notes.txt")
	assert.Equal(t, "some notes", meta.Title)
	assert.Equal(t, "Unknown", meta.Author)
	assert.Empty(t, meta.TextContent)
}

func TestExtractCorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	meta := New(50000).Extract(path)
	assert.Equal(t, "broken", meta.Title)
	assert.Empty(t, meta.TextContent)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatForPath("a.PDF"))
	assert.Equal(t, FormatEPUB, FormatForPath("b.epub"))
	assert.Equal(t, FormatUnsupported, FormatForPath("c.mobi"))
}

func TestFindISBN(t *testing.T) {
	tests := []struct {
		name        string
		identifiers []string
		want        string
	}{
		{"isbn13 with dashes", []string{"978-3-16-148410-0"}, "978-3-16-148410-0"},
		{"isbn10", []string{"0134190440"}, "0134190440"},
		{"skips non-digit", []string{"urn:uuid:abc", "9783161484100"}, "9783161484100"},
		{"wrong length", []string{"12345"}, ""},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findISBN(tt.identifiers))
		})
	}
}

func TestPDFCreationYear(t *testing.T) {
	year, ok := pdfCreationYear("D:20150407120000")
	require.True(t, ok)
	assert.Equal(t, 2015, year)

	_, ok = pdfCreationYear("D:20")
	assert.False(t, ok)

	_, ok = pdfCreationYear("")
	assert.False(t, ok)
}

func TestFileHashStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("same bytes"), 0o644))

	h1, err := FileHash(path)
	require.NoError(t, err)
	h2, err := FileHash(path)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestStripHTML(t *testing.T) {
	got := StripHTML(strings.NewReader("<p>one</p><script>skip()</script><p>two</p>"))
	assert.Equal(t, "one two", got)
}

func TestTruncateTextRuneSafe(t *testing.T) {
	s := "héllo wörld"
	out := truncateText(s, 2)
	assert.LessOrEqual(t, len(out), 2)
	assert.True(t, len(out) == 0 || out == "h")
}

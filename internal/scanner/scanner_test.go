package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanFiltersBySupportedFormats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	writeFile(t, filepath.Join(root, "b.epub"))
	writeFile(t, filepath.Join(root, "c.txt"))
	writeFile(t, filepath.Join(root, "sub", "d.pdf"))

	s := New([]string{".pdf", ".epub"})
	got := s.Scan([]string{root})

	want := []string{
		filepath.Join(root, "a.pdf"),
		filepath.Join(root, "b.epub"),
		filepath.Join(root, "sub", "d.pdf"),
	}
	assert.ElementsMatch(t, want, got)
}

func TestScanSkipsMissingAndNonDirectoryRoots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	file := filepath.Join(root, "a.pdf")

	s := New([]string{".pdf"})

	// Missing and file roots are skipped, valid roots still scanned.
	got := s.Scan([]string{filepath.Join(root, "missing"), file, root})
	assert.Equal(t, []string{file}, got)
}

func TestScanCaseInsensitiveExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "UPPER.PDF"))

	s := New([]string{".pdf"})
	got := s.Scan([]string{root})
	assert.Len(t, got, 1)
}

func TestSupported(t *testing.T) {
	s := New([]string{".pdf", ".epub"})
	assert.True(t, s.Supported("/x/y/book.pdf"))
	assert.True(t, s.Supported("book.EPUB"))
	assert.False(t, s.Supported("notes.txt"))
	assert.False(t, s.Supported("noext"))
}

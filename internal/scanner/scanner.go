// Package scanner finds ebook files under configured directories.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Scanner recursively scans directories for supported ebook formats.
type Scanner struct {
	formats map[string]struct{}
}

// New creates a scanner for the given extension set (lowercase, with dot).
func New(formats []string) *Scanner {
	set := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		set[strings.ToLower(f)] = struct{}{}
	}
	return &Scanner{formats: set}
}

// Supported reports whether the file extension belongs to the configured set.
func (s *Scanner) Supported(path string) bool {
	_, ok := s.formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Scan walks the given directories and returns all supported ebook files.
// Missing or non-directory roots are skipped with a warning.
func (s *Scanner) Scan(directories []string) []string {
	var found []string

	for _, dir := range directories {
		info, err := os.Stat(dir)
		if err != nil {
			slog.Warn("directory does not exist", "dir", dir)
			continue
		}
		if !info.IsDir() {
			slog.Warn("path is not a directory", "path", dir)
			continue
		}

		slog.Info("scanning directory", "dir", dir)
		count := 0

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Debug("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if !d.IsDir() && s.Supported(path) {
				found = append(found, path)
				count++
			}
			return nil
		})
		if err != nil {
			slog.Warn("walk failed", "dir", dir, "error", err)
			continue
		}

		slog.Info("scan finished", "dir", dir, "found", count)
	}

	slog.Info("total ebooks found", "count", len(found))
	return found
}

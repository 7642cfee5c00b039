// Package loader extracts plain text from uploaded documents. Format is
// detected from the file extension; each supported format has a dedicated
// extraction path. The loader performs no chunking or normalization beyond
// whatever the format demands — downstream stages own that.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions is the set of file extensions the loader accepts,
// in lowercase with the leading dot.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// UnsupportedFormatError is returned when a file's extension is not in the
// supported set. It is raised before any extraction is attempted.
type UnsupportedFormatError struct {
	// Ext is the offending extension (lowercase, with leading dot; may be
	// empty for extension-less files).
	Ext string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("loader: unsupported file format %q — supported: %s",
		e.Ext, strings.Join(SupportedExtensions, ", "))
}

// LoadError is returned when a supported document cannot be read or parsed
// (missing file, corrupt archive, malformed PDF). The underlying cause is
// preserved unchanged.
type LoadError struct {
	// Path is the file that failed to load.
	Path string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: failed to load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *LoadError) Unwrap() error { return e.Err }

// Load extracts the full plain text of the document at path.
// Unsupported extensions fail with *UnsupportedFormatError before any file
// access; extraction failures fail with *LoadError.
func Load(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".txt", ".md":
		return loadText(path)
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// loadText reads a plain-text or markdown file as UTF-8.
func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	return string(data), nil
}

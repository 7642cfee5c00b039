package loader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Load_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	_, err := Load("report.xlsx")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("want *UnsupportedFormatError, got %T: %v", err, err)
	}
	if ufe.Ext != ".xlsx" {
		t.Errorf("ext = %q, want .xlsx", ufe.Ext)
	}
}

func Test_Load_UnsupportedFormatBeforeFileAccess(t *testing.T) {
	t.Parallel()
	// The file does not exist; dispatch must still fail on format, not I/O.
	_, err := Load(filepath.Join(t.TempDir(), "missing.exe"))
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("want *UnsupportedFormatError, got %T: %v", err, err)
	}
}

func Test_Load_MissingTextFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("want *LoadError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func Test_Load_TextAndMarkdown(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "NOTES.MD"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if got != "hello world" {
			t.Errorf("load %s = %q, want %q", name, got, "hello world")
		}
	}
}

func Test_Load_DOCX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "doc.docx")
	writeTestDocx(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:tab/><w:t>part.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load docx: %v", err)
	}
	if !strings.Contains(got, "First paragraph.\n") {
		t.Errorf("missing first paragraph with newline: %q", got)
	}
	if !strings.Contains(got, "Second\tpart.") {
		t.Errorf("tab not preserved: %q", got)
	}
}

func Test_Load_DOCXWithoutDocumentXML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("<styles/>"))
	zw.Close()
	f.Close()

	_, err = Load(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("want *LoadError, got %T: %v", err, err)
	}
}

func Test_Load_CorruptDOCX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "corrupt.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("want *LoadError, got %T: %v", err, err)
	}
}

// writeTestDocx builds a minimal docx (zip with word/document.xml) at path.
func writeTestDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

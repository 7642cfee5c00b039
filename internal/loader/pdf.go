package loader

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts text from a PDF page by page. Pages are separated by a
// blank line so paragraph-level chunk boundaries survive extraction.
func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", &LoadError{Path: path, Err: err}
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}

package loader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// loadDOCX extracts text from a Word document. A .docx file is a zip archive;
// the body lives in word/document.xml as WordprocessingML. Text runs (<w:t>)
// are concatenated, paragraph ends (</w:p>) become newlines and tab elements
// (<w:tab/>) become tabs, which preserves enough structure for chunking.
func loadDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", &LoadError{Path: path, Err: fmt.Errorf("no word/document.xml in archive")}
	}

	rc, err := doc.Open()
	if err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}

package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageBanner returns the marker line placed before the text of page n.
func PageBanner(n int) string {
	return fmt.Sprintf("=== Page %d ===", n)
}

// PDFText extracts the text layer of a PDF, one banner per non-empty page.
// Image-only pages yield no text.
func PDFText(data []byte) (text string, pages int, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	fonts := make(map[string]*pdf.Font)
	var sb strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(PageBanner(i))
		sb.WriteString("\n")
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), pages, nil
}

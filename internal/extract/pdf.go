package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfExtractor reads PDFs page by page. Each non-empty page is prefixed with
// a [Página N] marker so retrieval can attribute hits to a page.
type pdfExtractor struct{}

func (e *pdfExtractor) Extract(path string) (Extraction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Página %d]\n%s", i, text))
	}

	return Extraction{Text: strings.TrimSpace(strings.Join(parts, "\n\n"))}, nil
}

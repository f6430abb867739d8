package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/paytechai/docquery/internal/orchestrator"
)

// renderPDF lays the transcript out as A4 paragraphs. Core fonts are
// cp1252, so text goes through the unicode translator for pt-BR accents.
func renderPDF(conv orchestrator.Conversation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(25, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	header := exportHeader(conv)
	pdf.MultiCell(0, 8, tr(header[0]), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range header[1:] {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	for _, m := range conv.Messages {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(roleLabel(m.Role)), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(m.Content), "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

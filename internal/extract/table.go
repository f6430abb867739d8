package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

const (
	// maxDumpRows bounds the row-wise DADOS block. The bound keeps the full
	// text tractable while leaving enough data for exact counting and listing.
	maxDumpRows = 2000
	sampleRows  = 20
)

// csvExtractor renders a CSV file as structured text.
type csvExtractor struct{}

func (e *csvExtractor) Extract(path string) (Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return Extraction{}, fmt.Errorf("reading csv: %w", err)
	}

	text, stats := renderTable(rows, filepath.Base(path))
	return Extraction{Text: text, Table: stats}, nil
}

// xlsxExtractor renders every sheet of a workbook, each under an
// [Aba: name] marker. Table stats come from the first non-empty sheet.
type xlsxExtractor struct{}

func (e *xlsxExtractor) Extract(path string) (Extraction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var parts []string
	var stats *TableStats

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Extraction{}, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		text, sheetStats := renderTable(rows, name+"::"+sheet)
		parts = append(parts, fmt.Sprintf("[Aba: %s]\n%s", sheet, text))
		if stats == nil && sheetStats != nil && sheetStats.Rows > 0 {
			stats = sheetStats
		}
	}

	return Extraction{Text: strings.TrimSpace(strings.Join(parts, "\n\n")), Table: stats}, nil
}

// renderTable produces the FONTE/LINHAS/COLUNAS header, a bounded aligned
// sample, and a row-wise CSV dump capped at maxDumpRows. The first row is
// treated as the header; Rows counts data rows only.
func renderTable(rows [][]string, sourceName string) (string, *TableStats) {
	var header []string
	var data [][]string
	if len(rows) > 0 {
		header = rows[0]
		data = rows[1:]
	}

	stats := &TableStats{
		Rows:        len(data),
		Cols:        len(header),
		ColumnNames: header,
	}

	var lines []string
	lines = append(lines, "FONTE: "+sourceName)
	lines = append(lines, fmt.Sprintf("LINHAS: %d | COLUNAS: %d", stats.Rows, stats.Cols))
	lines = append(lines, "COLUNAS: "+strings.Join(header, ", "))
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("AMOSTRA (primeiras %d linhas):", sampleRows))
	sample := data
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}
	lines = append(lines, alignRows(header, sample))
	lines = append(lines, "")

	if len(data) > 0 {
		lines = append(lines, fmt.Sprintf("DADOS (CSV linha-a-linha, até %d linhas):", maxDumpRows))
		dump := data
		if len(dump) > maxDumpRows {
			dump = dump[:maxDumpRows]
		}
		lines = append(lines, csvDump(header, dump))
		if len(data) > maxDumpRows {
			lines = append(lines, fmt.Sprintf("(truncado: %d linhas no total)", len(data)))
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n"), stats
}

func alignRows(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

func csvDump(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(header)
	w.WriteAll(rows)
	return strings.TrimRight(buf.String(), "\n")
}

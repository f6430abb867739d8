package intent

import (
	"encoding/csv"
	"regexp"
	"strings"
)

// Tabular documents carry a row-wise CSV dump in their rendered text. The
// engine parses it back so structured lookups work without the raw file.
var (
	dadosMarkerRE = regexp.MustCompile(`(?m)^DADOS \(CSV linha-a-linha[^)]*\):$`)
	shapeLineRE   = regexp.MustCompile(`(?m)^LINHAS:\s*(\d+)\s*\|\s*COLUNAS:\s*(\d+)$`)
	columnsLineRE = regexp.MustCompile(`(?m)^COLUNAS:\s*(.+)$`)
)

type tableData struct {
	header []string
	rows   [][]string
}

// parseTable recovers the embedded CSV dump from rendered table text.
func parseTable(text string) (*tableData, bool) {
	loc := dadosMarkerRE.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}

	rest := text[loc[1]:]
	var csvLines []string
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && len(csvLines) > 0 {
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "(truncado:") {
			continue
		}
		csvLines = append(csvLines, line)
	}
	if len(csvLines) < 1 {
		return nil, false
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(csvLines, "\n")))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		return nil, false
	}

	return &tableData{header: records[0], rows: records[1:]}, true
}

// shapeFromText reads the LINHAS/COLUNAS summary line.
func shapeFromText(text string) (rows, cols int, ok bool) {
	m := shapeLineRE.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	rows = atoiSafe(m[1])
	cols = atoiSafe(m[2])
	return rows, cols, true
}

// columnNamesFromText reads the COLUNAS header line.
func columnNamesFromText(text string) []string {
	m := columnsLineRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var names []string
	for _, c := range strings.Split(m[1], ",") {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	return names
}

// columnValues returns the non-empty values of the first column whose name
// matches one of the synonyms, case-insensitive.
func (t *tableData) columnValues(synonyms []string) ([]string, bool) {
	idx := -1
	for i, name := range t.header {
		low := strings.ToLower(strings.TrimSpace(name))
		for _, syn := range synonyms {
			if low == strings.ToLower(syn) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	var values []string
	for _, row := range t.rows {
		if idx < len(row) {
			if v := strings.TrimSpace(row[idx]); v != "" {
				values = append(values, v)
			}
		}
	}
	return values, len(values) > 0
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

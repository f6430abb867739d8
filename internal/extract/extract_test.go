package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatFromFilename(t *testing.T) {
	cases := map[string]Format{
		"contrato.pdf": FormatPDF,
		"alunos.CSV":   FormatCSV,
		"notas.xlsx":   FormatXLSX,
		"legado.xls":   FormatXLSX,
		"leia-me.txt":  FormatTXT,
		"sem-extensao": FormatTXT,
	}
	for filename, want := range cases {
		if got := FormatFromFilename(filename); got != want {
			t.Errorf("FormatFromFilename(%q): expected %q, got %q", filename, want, got)
		}
	}
}

func TestExtractCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alunos.csv")
	content := "nome,idade,nota\nAna,20,8\nBruno,22,7\nCarla,21,9\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	reg := NewRegistry()
	result, err := reg.Extract(path, FormatCSV)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Table == nil {
		t.Fatal("Expected table stats")
	}
	if result.Table.Rows != 3 {
		t.Errorf("Rows: expected 3, got %d", result.Table.Rows)
	}
	if result.Table.Cols != 3 {
		t.Errorf("Cols: expected 3, got %d", result.Table.Cols)
	}
	if len(result.Table.ColumnNames) != 3 || result.Table.ColumnNames[0] != "nome" {
		t.Errorf("ColumnNames: unexpected %v", result.Table.ColumnNames)
	}

	for _, want := range []string{
		"FONTE: alunos.csv",
		"LINHAS: 3 | COLUNAS: 3",
		"COLUNAS: nome, idade, nota",
		"DADOS (CSV linha-a-linha, até 2000 linhas):",
		"Ana,20,8",
		"Carla,21,9",
	} {
		if !strings.Contains(result.Text, want) {
			t.Errorf("Text missing %q:\n%s", want, result.Text)
		}
	}
	if strings.Contains(result.Text, "truncado") {
		t.Error("Small table should not be marked truncated")
	}
}

func TestExtractCSVTruncatesDump(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grande.csv")

	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < maxDumpRows+5; i++ {
		b.WriteString("x\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	reg := NewRegistry()
	result, err := reg.Extract(path, FormatCSV)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Table.Rows != maxDumpRows+5 {
		t.Errorf("Rows: expected %d, got %d", maxDumpRows+5, result.Table.Rows)
	}
	want := "(truncado: 2005 linhas no total)"
	if !strings.Contains(result.Text, want) {
		t.Errorf("Text missing truncation marker %q", want)
	}
}

func TestExtractTXT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nota.txt")
	if err := os.WriteFile(path, []byte("texto simples"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	reg := NewRegistry()
	result, err := reg.Extract(path, FormatTXT)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Text != "texto simples" {
		t.Errorf("Text: expected passthrough, got %q", result.Text)
	}
	if result.Table != nil {
		t.Error("TXT should not carry table stats")
	}
}

func TestExtractMissingFile(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Extract("/nonexistent/file.csv", FormatCSV)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), ErrExtractionFailed.Error()) {
		t.Errorf("Expected wrapped ErrExtractionFailed, got %v", err)
	}
}

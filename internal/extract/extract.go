// Package extract turns uploaded files into plain text that the rest of the
// pipeline can chunk, index, and scan. Table formats are rendered row-wise so
// exact counting and listing work from text alone.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatTXT  Format = "txt"
)

// TableStats describes a tabular document. Rows counts data rows, excluding
// the header.
type TableStats struct {
	Rows        int
	Cols        int
	ColumnNames []string
}

// Extraction is the output of extracting one file.
type Extraction struct {
	Text  string
	Table *TableStats
}

// Extractor converts one file format to text.
type Extractor interface {
	Extract(path string) (Extraction, error)
}

// Registry maps formats to their extractors.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry returns a registry covering all supported formats.
func NewRegistry() *Registry {
	return &Registry{
		extractors: map[Format]Extractor{
			FormatPDF:  &pdfExtractor{},
			FormatCSV:  &csvExtractor{},
			FormatXLSX: &xlsxExtractor{},
			FormatTXT:  &textExtractor{},
		},
	}
}

// FormatFromFilename derives the format from a filename extension.
// Unknown extensions fall back to plain text.
func FormatFromFilename(filename string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "pdf":
		return FormatPDF
	case "csv":
		return FormatCSV
	case "xlsx", "xls":
		return FormatXLSX
	default:
		return FormatTXT
	}
}

// Extract runs the extractor registered for format against path.
func (r *Registry) Extract(path string, format Format) (Extraction, error) {
	ex, ok := r.extractors[format]
	if !ok {
		return Extraction{}, fmt.Errorf("%w: unsupported format %q", ErrExtractionFailed, format)
	}
	result, err := ex.Extract(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return result, nil
}

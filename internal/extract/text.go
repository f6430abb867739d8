package extract

import (
	"fmt"
	"os"
)

// textExtractor passes plain text files through untouched.
type textExtractor struct{}

func (e *textExtractor) Extract(path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("reading text file: %w", err)
	}
	return Extraction{Text: string(data)}, nil
}

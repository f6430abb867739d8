package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskFullTexts keeps one text file per document under
// <dataDir>/fulltexts/<tenant>/<doc>.txt.
type DiskFullTexts struct {
	root string
}

func NewDiskFullTexts(dataDir string) *DiskFullTexts {
	return &DiskFullTexts{root: filepath.Join(dataDir, "fulltexts")}
}

// Save writes the extracted text and returns the path it was stored at.
func (f *DiskFullTexts) Save(tenantID, docID, text string) (string, error) {
	dir := filepath.Join(f.root, tenantID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating full-text directory: %w", err)
	}
	path := filepath.Join(dir, docID+".txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", fmt.Errorf("writing full text for %s: %w", docID, err)
	}
	return path, nil
}

func (f *DiskFullTexts) Load(tenantID, docID string) (string, error) {
	path := filepath.Join(f.root, tenantID, docID+".txt")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("full text for %s: %w", docID, ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading full text for %s: %w", docID, err)
	}
	return string(data), nil
}

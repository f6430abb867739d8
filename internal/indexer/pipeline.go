// Package indexer runs the ingestion pipeline: extract, chunk, embed, store.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paytechai/docquery/internal/chunker"
	"github.com/paytechai/docquery/internal/embedding"
	"github.com/paytechai/docquery/internal/extract"
	"github.com/paytechai/docquery/internal/store"
)

var (
	pageMarkerRE  = regexp.MustCompile(`(?i)\[Página\s+(\d+)\]`)
	sheetMarkerRE = regexp.MustCompile(`(?i)\[Aba:\s*([^\]]+)\]`)
)

// IndexResult contains statistics about one ingested document.
type IndexResult struct {
	Doc      store.Document
	Chunks   int
	Embedded bool
	Duration time.Duration
}

// Pipeline orchestrates the full ingestion process from extraction to storage.
// Embedding failures degrade the document to lexical-only retrieval instead
// of failing ingestion.
type Pipeline struct {
	registry  *extract.Registry
	chunker   *chunker.Chunker
	embedder  *embedding.Embedder
	chunks    store.ChunkStore
	catalog   store.Catalog
	fullTexts store.FullTexts
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline. A nil embedder disables
// semantic indexing entirely.
func NewPipeline(
	registry *extract.Registry,
	chunker *chunker.Chunker,
	embedder *embedding.Embedder,
	chunks store.ChunkStore,
	catalog store.Catalog,
	fullTexts store.FullTexts,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:  registry,
		chunker:   chunker,
		embedder:  embedder,
		chunks:    chunks,
		catalog:   catalog,
		fullTexts: fullTexts,
		logger:    logger,
	}
}

// IndexFile ingests one file for a tenant. Extraction failure aborts with
// nothing persisted; embedding failure logs and proceeds lexical-only.
func (p *Pipeline) IndexFile(ctx context.Context, tenantID, path, filename string) (*IndexResult, error) {
	start := time.Now()

	format := extract.FormatFromFilename(filename)
	extraction, err := p.registry.Extract(path, format)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	p.logger.Debug("Extracted document", "filename", filename, "chars", len(extraction.Text))

	pieces := p.chunker.Split(extraction.Text)
	p.logger.Debug("Chunked document", "filename", filename, "chunks", len(pieces))

	embedded := false
	var vectors [][]float32
	if p.embedder != nil && len(pieces) > 0 {
		vectors, err = p.embedder.Embed(ctx, pieces)
		if err != nil {
			p.logger.Warn("Embedding failed, indexing lexical-only", "filename", filename, "error", err)
			vectors = nil
		} else {
			embedded = true
		}
	}

	docID := uuid.New().String()

	fullTextPath, err := p.fullTexts.Save(tenantID, docID, extraction.Text)
	if err != nil {
		return nil, fmt.Errorf("save full text: %w", err)
	}

	doc := store.Document{
		ID:           docID,
		TenantID:     tenantID,
		Filename:     filename,
		Ext:          string(format),
		StoredPath:   path,
		FullTextPath: fullTextPath,
		TextChars:    len([]rune(extraction.Text)),
		CreatedAt:    time.Now().UTC(),
	}
	if extraction.Table != nil {
		doc.Rows = extraction.Table.Rows
		doc.Cols = extraction.Table.Cols
		doc.ColumnNames = extraction.Table.ColumnNames
	}

	if err := p.catalog.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	storeChunks := make([]store.Chunk, len(pieces))
	for i, text := range pieces {
		page, sheet := positionMarkers(text)
		c := store.Chunk{
			ID:       uuid.New().String(),
			DocID:    docID,
			TenantID: tenantID,
			Filename: filename,
			Ext:      string(format),
			Index:    i,
			Text:     text,
			Page:     page,
			Sheet:    sheet,
		}
		if embedded {
			c.Embedding = vectors[i]
		}
		storeChunks[i] = c
	}

	if err := p.chunks.UpsertChunks(ctx, storeChunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	result := &IndexResult{
		Doc:      doc,
		Chunks:   len(storeChunks),
		Embedded: embedded,
		Duration: time.Since(start),
	}
	p.logger.Info("Indexed document",
		"tenant", tenantID,
		"filename", filename,
		"chunks", result.Chunks,
		"embedded", embedded,
		"duration", result.Duration,
	)
	return result, nil
}

// Remove deletes a document's chunks and catalog entry.
func (p *Pipeline) Remove(ctx context.Context, tenantID, docID string) error {
	if err := p.chunks.DeleteByDoc(ctx, tenantID, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := p.catalog.DeleteDocument(ctx, tenantID, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	p.logger.Info("Removed document", "tenant", tenantID, "doc", docID)
	return nil
}

// positionMarkers pulls the first page and sheet markers out of a chunk so
// retrieval can attribute hits. Zero page / empty sheet mean no marker.
func positionMarkers(text string) (int, string) {
	page := 0
	if m := pageMarkerRE.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			page = n
		}
	}
	sheet := ""
	if m := sheetMarkerRE.FindStringSubmatch(text); m != nil {
		sheet = m[1]
	}
	return page, sheet
}

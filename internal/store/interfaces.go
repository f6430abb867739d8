package store

import "context"

// ChunkStore persists and searches chunks. Implemented by Qdrant for
// deployments and MemoryChunks for tests.
type ChunkStore interface {
	// UpsertChunks stores chunks; entries with a nil Embedding are kept and
	// served to lexical scans only.
	UpsertChunks(ctx context.Context, chunks []Chunk) error
	// SearchByVector returns the tenant's chunks ordered by cosine similarity
	// to the query vector, highest first. No similarity floor is applied.
	SearchByVector(ctx context.Context, tenantID string, vector []float32, limit int) ([]ScoredChunk, error)
	// ScrollByTenant returns all of a tenant's chunks, ordered by insertion.
	ScrollByTenant(ctx context.Context, tenantID string) ([]Chunk, error)
	// ScrollByDoc returns one document's chunks in ordinal order.
	ScrollByDoc(ctx context.Context, tenantID, docID string) ([]Chunk, error)
	// DeleteByDoc removes all chunks of one document.
	DeleteByDoc(ctx context.Context, tenantID, docID string) error
}

// Catalog persists document metadata and session document state.
type Catalog interface {
	UpsertDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, tenantID, docID string) (Document, error)
	GetDocumentByFilename(ctx context.Context, tenantID, filename string) (Document, error)
	// FindDocumentByHint matches a document by exact id, exact filename, then
	// case-insensitive filename containment, most recent first.
	FindDocumentByHint(ctx context.Context, tenantID, hint string) (Document, error)
	ListDocuments(ctx context.Context, tenantID string) ([]Document, error)
	DeleteDocument(ctx context.Context, tenantID, docID string) error
	UpdateTableStats(ctx context.Context, tenantID, docID string, rows, cols int, columns []string) error

	UpsertSession(ctx context.Context, st SessionState) error
	GetSession(ctx context.Context, tenantID, threadKey string) (SessionState, bool, error)
}

// FullTexts stores the verbatim extracted text of each document, independent
// of chunk storage, so exact answers never depend on chunk reconstruction.
type FullTexts interface {
	Save(tenantID, docID, text string) (string, error)
	Load(tenantID, docID string) (string, error)
}

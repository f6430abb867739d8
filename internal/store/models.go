package store

import "time"

// Document is one uploaded file in a tenant's corpus. The raw bytes live in
// external file storage; the catalog keeps metadata plus the location of the
// persisted full extracted text, which deterministic answers read directly.
type Document struct {
	ID           string
	TenantID     string
	Filename     string
	Ext          string
	StoredPath   string
	FullTextPath string
	TextChars    int

	// Tabular shape, populated best-effort for CSV/XLSX sources. Zero values
	// mean "unknown"; stats are recomputed lazily on first request.
	Rows        int
	Cols        int
	ColumnNames []string

	CreatedAt time.Time
}

// Chunk is the unit of retrieval: an ordinal text span of a document with an
// optional embedding vector and best-effort positional metadata.
type Chunk struct {
	ID       string
	DocID    string
	TenantID string
	Filename string
	Ext      string
	Index    int
	Text     string

	// Embedding may be nil when the embedding capability was unavailable at
	// index time; such chunks participate in lexical retrieval only.
	Embedding []float32

	// Positional metadata parsed from extraction markers.
	Page  int    // 0 when unknown
	Sheet string // "" when unknown
}

// ScoredChunk pairs a chunk with a similarity score from vector search.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SessionState is the sticky active-document record for one conversation.
// At most one active document per (tenant, thread) key.
type SessionState struct {
	TenantID  string
	ThreadKey string
	Active    bool
	DocID     string
	Filename  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

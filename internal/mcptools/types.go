// Package mcptools exposes the document pipeline as MCP tools.
package mcptools

import "time"

// QueryDocumentInput defines the input parameters for the query_document tool.
type QueryDocumentInput struct {
	// Question is the exact question to answer deterministically.
	Question string `json:"question" jsonschema:"Question with one computable answer (counts, stats, exact field extraction)"`
	// TenantID scopes the lookup. Defaults to the server's tenant.
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Tenant scope for the lookup"`
	// DocID pins the question to one document. When empty the document is
	// resolved from the question text or by retrieval.
	DocID string `json:"doc_id,omitempty" jsonschema:"Document id to answer from; resolved from the question when omitted"`
}

// QueryDocumentOutput contains the deterministic answer.
type QueryDocumentOutput struct {
	// Answer is the computed text, or the fixed not-found sentinel.
	Answer string `json:"answer"`
	// DocID is the document the answer was computed from.
	DocID string `json:"doc_id,omitempty"`
	// Filename is the resolved document's name.
	Filename string `json:"filename,omitempty"`
	// Handled reports whether the question was classifiable and executable.
	Handled bool `json:"handled"`
}

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	// Query is the keyword search query.
	Query string `json:"query" jsonschema:"Keyword query over the document library"`
	// TenantID scopes the search.
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Tenant scope for the search"`
	// MaxResults caps the result list.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of documents to return"`
}

// SearchDocumentsOutput contains the search results.
type SearchDocumentsOutput struct {
	Results []DocumentMatch `json:"results"`
	// Message provides informational context when there are no results.
	Message string `json:"message,omitempty"`
}

// DocumentMatch is one scored document with an evidence snippet.
type DocumentMatch struct {
	DocID    string  `json:"doc_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// ListDocumentsInput defines the input parameters for the list_documents
// tool. The tool lists every document in the tenant's library.
type ListDocumentsInput struct {
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Tenant scope for the listing"`
}

// ListDocumentsOutput contains the library listing.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo is one catalog entry.
type DocumentInfo struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Ext       string    `json:"ext"`
	TextChars int       `json:"text_chars"`
	Rows      int       `json:"rows,omitempty"`
	Cols      int       `json:"cols,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

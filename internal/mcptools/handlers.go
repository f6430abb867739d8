package mcptools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
)

// makeQueryHandler creates the query_document tool handler. The answer is
// fully deterministic: classify, resolve the document, execute. Questions the
// rule table cannot classify come back unhandled instead of guessing.
func (s *Server) makeQueryHandler() func(
	context.Context, *mcp.CallToolRequest, QueryDocumentInput,
) (*mcp.CallToolResult, QueryDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryDocumentInput) (
		*mcp.CallToolResult, QueryDocumentOutput, error,
	) {
		tenant := s.tenantOf(input.TenantID)

		q, ok := intent.Classify(input.Question)
		if !ok {
			return nil, QueryDocumentOutput{Handled: false}, nil
		}

		doc, err := s.resolveDocument(ctx, tenant, input.Question, q.FileHint, input.DocID)
		if err != nil {
			return nil, QueryDocumentOutput{}, fmt.Errorf("resolve document: %w", err)
		}

		answer, handled := s.engine.Execute(ctx, q, doc)
		if !handled {
			return nil, QueryDocumentOutput{Handled: false, DocID: doc.ID, Filename: doc.Filename}, nil
		}
		return nil, QueryDocumentOutput{
			Answer:   answer.Text,
			DocID:    doc.ID,
			Filename: doc.Filename,
			Handled:  true,
		}, nil
	}
}

func (s *Server) resolveDocument(ctx context.Context, tenant, question, hint, docID string) (store.Document, error) {
	if docID != "" {
		return s.catalog.GetDocument(ctx, tenant, docID)
	}
	if hint != "" {
		if doc, err := s.catalog.FindDocumentByHint(ctx, tenant, hint); err == nil {
			return doc, nil
		}
	}
	if s.retriever != nil {
		if id, ok := s.retriever.BestDocument(ctx, tenant, question, retrieval.DefaultTopK); ok {
			return s.catalog.GetDocument(ctx, tenant, id)
		}
	}
	return store.Document{}, store.ErrDocumentNotFound
}

// makeSearchHandler creates the search_documents tool handler: keyword
// scoring over each document's full text, filename mentions boosted.
func (s *Server) makeSearchHandler() func(
	context.Context, *mcp.CallToolRequest, SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentsInput) (
		*mcp.CallToolResult, SearchDocumentsOutput, error,
	) {
		tenant := s.tenantOf(input.TenantID)
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		docs, err := s.catalog.ListDocuments(ctx, tenant)
		if err != nil {
			return nil, SearchDocumentsOutput{}, fmt.Errorf("list documents: %w", err)
		}

		terms := retrieval.QueryTerms(input.Query)
		matches := make([]DocumentMatch, 0, len(docs))
		for _, doc := range docs {
			text, err := s.fullTexts.Load(tenant, doc.ID)
			if err != nil {
				s.logger.Warn("Full text missing during search", "doc_id", doc.ID, "error", err)
				continue
			}
			score := retrieval.KeywordScore(text, doc.Filename, terms)
			if score <= 0 {
				continue
			}
			matches = append(matches, DocumentMatch{
				DocID:    doc.ID,
				Filename: doc.Filename,
				Score:    score,
				Snippet:  retrieval.Snippet(text, terms, retrieval.DefaultSnippetLen),
			})
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
		if len(matches) > maxResults {
			matches = matches[:maxResults]
		}

		if len(matches) == 0 {
			return nil, SearchDocumentsOutput{
				Results: []DocumentMatch{},
				Message: "No matching documents found. Try broader search terms.",
			}, nil
		}
		return nil, SearchDocumentsOutput{Results: matches}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func (s *Server) makeListHandler() func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		tenant := s.tenantOf(input.TenantID)
		docs, err := s.catalog.ListDocuments(ctx, tenant)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("list documents: %w", err)
		}

		out := ListDocumentsOutput{Documents: make([]DocumentInfo, 0, len(docs)), Count: len(docs)}
		for _, d := range docs {
			out.Documents = append(out.Documents, DocumentInfo{
				DocID:     d.ID,
				Filename:  d.Filename,
				Ext:       d.Ext,
				TextChars: d.TextChars,
				Rows:      d.Rows,
				Cols:      d.Cols,
				CreatedAt: d.CreatedAt,
			})
		}
		return nil, out, nil
	}
}

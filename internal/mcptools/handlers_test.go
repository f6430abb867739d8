package mcptools

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
)

func newTestTools(t *testing.T) (*Server, store.Catalog, store.FullTexts) {
	t.Helper()
	dir := t.TempDir()
	catalog, err := store.NewSQLiteCatalog(dir)
	require.NoError(t, err)
	texts := store.NewDiskFullTexts(dir)
	logger := slog.New(slog.DiscardHandler)

	srv := NewServer(&Config{
		Catalog:       catalog,
		FullTexts:     texts,
		Retriever:     retrieval.New(store.NewMemoryChunks(), nil, logger),
		Engine:        intent.NewEngine(texts, logger),
		DefaultTenant: "t1",
		Logger:        logger,
	})
	return srv, catalog, texts
}

func seed(t *testing.T, catalog store.Catalog, texts store.FullTexts, id, filename, text string) {
	t.Helper()
	_, err := texts.Save("t1", id, text)
	require.NoError(t, err)
	require.NoError(t, catalog.UpsertDocument(context.Background(), store.Document{
		ID: id, TenantID: "t1", Filename: filename, Ext: "txt",
		TextChars: len(text), CreatedAt: time.Now(),
	}))
}

func TestQueryDocumentDeterministic(t *testing.T) {
	srv, catalog, texts := newTestTools(t)
	seed(t, catalog, texts, "doc-1", "notas.txt", "ok?\nsim?\nperfeito")

	handler := srv.makeQueryHandler()
	_, out, err := handler(context.Background(), nil, QueryDocumentInput{
		Question: "quantos pontos de interrogação tem no notas.txt?",
	})
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.Equal(t, "2", out.Answer)
	assert.Equal(t, "doc-1", out.DocID)
}

func TestQueryDocumentUnclassifiable(t *testing.T) {
	srv, _, _ := newTestTools(t)
	handler := srv.makeQueryHandler()
	_, out, err := handler(context.Background(), nil, QueryDocumentInput{
		Question: "me conte uma piada",
	})
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Empty(t, out.Answer)
}

func TestQueryDocumentUnknownExplicitID(t *testing.T) {
	srv, _, _ := newTestTools(t)
	handler := srv.makeQueryHandler()
	_, _, err := handler(context.Background(), nil, QueryDocumentInput{
		Question: "quantas palavras tem o documento?",
		DocID:    "missing",
	})
	assert.Error(t, err)
}

func TestSearchDocumentsRanksByKeyword(t *testing.T) {
	srv, catalog, texts := newTestTools(t)
	seed(t, catalog, texts, "doc-1", "contrato.txt", "contrato de prestação de serviços com prazo de 30 dias")
	seed(t, catalog, texts, "doc-2", "receita.txt", "bolo de cenoura com cobertura de chocolate")

	handler := srv.makeSearchHandler()
	_, out, err := handler(context.Background(), nil, SearchDocumentsInput{Query: "prazo do contrato"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "doc-1", out.Results[0].DocID)
	assert.Contains(t, out.Results[0].Snippet, "prazo")
}

func TestSearchDocumentsNoMatches(t *testing.T) {
	srv, catalog, texts := newTestTools(t)
	seed(t, catalog, texts, "doc-1", "contrato.txt", "texto sem relação")

	handler := srv.makeSearchHandler()
	_, out, err := handler(context.Background(), nil, SearchDocumentsInput{Query: "zzz inexistente"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestListDocuments(t *testing.T) {
	srv, catalog, texts := newTestTools(t)
	seed(t, catalog, texts, "doc-1", "a.txt", "aaa")
	seed(t, catalog, texts, "doc-2", "b.txt", "bbb")

	handler := srv.makeListHandler()
	_, out, err := handler(context.Background(), nil, ListDocumentsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Len(t, out.Documents, 2)
}

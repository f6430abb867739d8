//go:build integration

package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytechai/docquery/internal/chunker"
	"github.com/paytechai/docquery/internal/embedding"
	"github.com/paytechai/docquery/internal/extract"
	"github.com/paytechai/docquery/internal/store"
)

func TestPipeline_IndexFile_Integration(t *testing.T) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	chunks, err := store.NewQdrantChunks("localhost", 6334, embedding.DefaultDimension)
	require.NoError(t, err)
	defer chunks.Close()
	require.NoError(t, chunks.EnsureCollection(context.Background()))

	catalog, err := store.NewSQLiteCatalog(t.TempDir())
	require.NoError(t, err)
	defer catalog.Close()

	openaiClient, err := embedding.NewClient()
	require.NoError(t, err)
	embedder := embedding.NewEmbedder(openaiClient, "", 500)

	pipeline := NewPipeline(
		extract.NewRegistry(),
		chunker.New(chunker.DefaultChunkTokens, chunker.DefaultOverlapTokens),
		embedder,
		chunks,
		catalog,
		store.NewDiskFullTexts(t.TempDir()),
		slog.Default(),
	)

	path := filepath.Join(t.TempDir(), "contrato.txt")
	require.NoError(t, os.WriteFile(path, []byte("Contrato de prestação de serviços.\nValor total: R$ 1.200,00 em 12 parcelas."), 0o600))

	ctx := context.Background()
	result, err := pipeline.IndexFile(ctx, "tenant-it", path, "contrato.txt")
	require.NoError(t, err)
	assert.True(t, result.Embedded)
	assert.Greater(t, result.Chunks, 0)

	// Verify searchable by vector.
	vector, err := embedder.EmbedQuery(ctx, "qual o valor do contrato?")
	require.NoError(t, err)
	hits, err := chunks.SearchByVector(ctx, "tenant-it", vector, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	require.NoError(t, pipeline.Remove(ctx, "tenant-it", result.Doc.ID))
}

// Package main provides the docquery CLI for ingesting and inspecting the
// document library.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paytechai/docquery/internal/chunker"
	"github.com/paytechai/docquery/internal/config"
	"github.com/paytechai/docquery/internal/embedding"
	"github.com/paytechai/docquery/internal/extract"
	"github.com/paytechai/docquery/internal/indexer"
	"github.com/paytechai/docquery/internal/store"
)

var tenantFlag string

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Document library management tool",
	Long:  "CLI tool for ingesting documents and inspecting the docquery index",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path> [<path>...]",
	Short: "Index one or more documents (PDF, CSV, XLSX, TXT)",
	Long: `Extracts text, chunks it, embeds the chunks and stores everything
for retrieval and deterministic answering.

Environment variables:
  QDRANT_HOST       Qdrant hostname (default: localhost)
  QDRANT_PORT       Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY    OpenAI API key for embeddings (optional; lexical-only without it)
  DOCQUERY_DATA_DIR Data directory (default: data)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var removeCmd = &cobra.Command{
	Use:   "remove <doc-id>",
	Short: "Delete a document, its chunks and its stored text",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tenant's indexed documents and chunk counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "default", "tenant scope")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStores connects the catalog, full-text store and chunk store. Qdrant
// being down is fatal for the CLI: ingesting into a memory store would
// silently vanish.
func openStores(cfg config.Config) (*store.SQLiteCatalog, *store.DiskFullTexts, *store.QdrantChunks, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, nil, err
	}
	catalog, err := store.NewSQLiteCatalog(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	fullTexts := store.NewDiskFullTexts(cfg.DataDir)

	chunks, err := store.NewQdrantChunks(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbedDimension)
	if err != nil {
		catalog.Close()
		return nil, nil, nil, fmt.Errorf("connect to Qdrant: %w", err)
	}
	return catalog, fullTexts, chunks, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()
	cfg := config.Load()

	catalog, fullTexts, chunks, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer chunks.Close()

	if err := chunks.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	var embedder *embedding.Embedder
	if client, err := embedding.NewClient(); err != nil {
		fmt.Println("OPENAI_API_KEY not set; indexing lexical-only")
	} else {
		embedder = embedding.NewEmbedder(client, cfg.EmbedModel, 0)
	}

	pipeline := indexer.NewPipeline(
		extract.NewRegistry(),
		chunker.New(cfg.ChunkTokens, cfg.OverlapTokens),
		embedder,
		chunks,
		catalog,
		fullTexts,
		slog.Default(),
	)

	failed := 0
	for _, path := range args {
		filename := filepath.Base(path)
		fmt.Printf("Indexing %s...\n", filename)

		res, err := pipeline.IndexFile(ctx, tenantFlag, path, filename)
		if err != nil {
			failed++
			fmt.Printf("  failed: %v\n", err)
			continue
		}
		fmt.Printf("  id=%s chunks=%d embedded=%t chars=%d\n",
			res.Doc.ID, res.Chunks, res.Embedded, res.Doc.TextChars)
		if res.Doc.Rows > 0 {
			fmt.Printf("  table: %d rows x %d cols\n", res.Doc.Rows, res.Doc.Cols)
		}
	}

	fmt.Println()
	fmt.Printf("Done in %s (%d/%d files indexed)\n",
		time.Since(start).Round(time.Millisecond), len(args)-failed, len(args))
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	catalog, _, chunks, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer chunks.Close()

	docID := args[0]
	doc, err := catalog.GetDocument(ctx, tenantFlag, docID)
	if err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}

	if err := chunks.DeleteByDoc(ctx, tenantFlag, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := catalog.DeleteDocument(ctx, tenantFlag, docID); err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	fmt.Printf("Removed %s (%s)\n", doc.Filename, docID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	catalog, _, chunks, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()
	defer chunks.Close()

	if err := chunks.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	info, err := chunks.GetCollectionInfo(ctx)
	if err == nil {
		fmt.Printf("Collection points: %d\n", info.PointsCount)
	}

	docs, err := catalog.ListDocuments(ctx, tenantFlag)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Printf("No documents indexed for tenant %q\n", tenantFlag)
		return nil
	}

	fmt.Printf("\nDocuments for tenant %q:\n", tenantFlag)
	for _, d := range docs {
		extra := ""
		if d.Rows > 0 {
			extra = fmt.Sprintf(" (%d rows x %d cols)", d.Rows, d.Cols)
		}
		fmt.Printf("  %s  %s  %d chars%s\n", d.ID, d.Filename, d.TextChars, extra)
	}
	return nil
}

// Package main is the docquery service entry point: HTTP query endpoints,
// MCP tools and document storage behind one process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paytechai/docquery/internal/config"
	"github.com/paytechai/docquery/internal/docsession"
	"github.com/paytechai/docquery/internal/embedding"
	"github.com/paytechai/docquery/internal/export"
	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/mcptools"
	"github.com/paytechai/docquery/internal/orchestrator"
	"github.com/paytechai/docquery/internal/planner"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/server"
	"github.com/paytechai/docquery/internal/store"
	"github.com/paytechai/docquery/internal/worker"
)

func main() {
	// Load .env if present (local development), ignore if missing.
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	catalog, err := store.NewSQLiteCatalog(cfg.DataDir)
	if err != nil {
		return err
	}
	defer catalog.Close()
	fullTexts := store.NewDiskFullTexts(cfg.DataDir)

	// The chunk store degrades to in-memory when Qdrant is unreachable:
	// lexical answering still works, nothing persists across restarts.
	var (
		chunks store.ChunkStore
		health server.HealthChecker
	)
	qdrantChunks, err := store.NewQdrantChunks(cfg.QdrantHost, cfg.QdrantPort, cfg.EmbedDimension)
	if err != nil {
		logger.Warn("Qdrant unreachable, falling back to in-memory chunks", "error", err)
		chunks = store.NewMemoryChunks()
	} else {
		if err := qdrantChunks.EnsureCollection(ctx); err != nil {
			return err
		}
		defer qdrantChunks.Close()
		chunks = qdrantChunks
		health = qdrantChunks
	}

	// Without an OpenAI key the service answers deterministically only.
	var (
		embedder  *embedding.Embedder
		llmClient llm.Client
	)
	if openaiClient, err := embedding.NewClient(); err != nil {
		logger.Warn("OpenAI unavailable, running lexical and deterministic only", "error", err)
	} else {
		embedder = embedding.NewEmbedder(openaiClient, cfg.EmbedModel, 0)
		llmClient = llm.NewOpenAIClient(openaiClient.Client(), cfg.ChatModel)
	}

	plannerPool := worker.NewPool("planner", cfg.PlannerWorkers, logger)
	toolsPool := worker.NewPool("tools", cfg.ToolWorkers, logger)
	plannerPool.Start()
	toolsPool.Start()
	defer plannerPool.Drain()
	defer toolsPool.Drain()

	retriever := retrieval.New(chunks, embedder, logger)
	engine := intent.NewEngine(fullTexts, logger)
	sessions := docsession.NewTracker(catalog, retriever, logger)

	exportsDir := filepath.Join(cfg.DataDir, "exports")
	renderer, err := export.NewFileRenderer(exportsDir, "/exports", logger)
	if err != nil {
		return err
	}

	turnPlanner := planner.New(llmClient, plannerPool, logger)
	turnPlanner.SetTimeout(cfg.PlannerTimeout)

	orch := orchestrator.New(orchestrator.Deps{
		Catalog:     catalog,
		FullTexts:   fullTexts,
		Retriever:   retriever,
		Engine:      engine,
		Sessions:    sessions,
		Planner:     turnPlanner,
		LLM:         llmClient,
		ToolsPool:   toolsPool,
		Renderer:    renderer,
		Logger:      logger,
		ToolTimeout: cfg.ToolsTimeout,
		TopK:        cfg.TopK,
	})

	httpServer := server.New(server.Config{
		Orchestrator: orch,
		Catalog:      catalog,
		FullTexts:    fullTexts,
		Health:       health,
		ExportsDir:   exportsDir,
		Logger:       logger,
	})

	toolServer := mcptools.NewServer(&mcptools.Config{
		Catalog:       catalog,
		FullTexts:     fullTexts,
		Retriever:     retriever,
		Engine:        engine,
		DefaultTenant: server.DefaultTenant,
		Logger:        logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/", httpServer.Handler())
	mux.Handle("/mcp", mcptools.NewHTTPHandler(toolServer, nil))

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package mcptools

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server        *mcp.Server
	catalog       store.Catalog
	fullTexts     store.FullTexts
	retriever     *retrieval.Retriever
	engine        *intent.Engine
	defaultTenant string
	logger        *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Catalog       store.Catalog
	FullTexts     store.FullTexts
	Retriever     *retrieval.Retriever
	Engine        *intent.Engine
	DefaultTenant string
	Logger        *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		catalog:       cfg.Catalog,
		fullTexts:     cfg.FullTexts,
		retriever:     cfg.Retriever,
		engine:        cfg.Engine,
		defaultTenant: cfg.DefaultTenant,
		logger:        logger,
	}

	impl := &mcp.Implementation{
		Name:    "docquery-server",
		Version: "v0.1.0",
	}
	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_document",
		Description: "Answer an exact question about a stored document deterministically: counts, table stats, field extraction, listings. Never generates text.",
	}, s.makeQueryHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the document library by keywords. Returns matching documents with scores and evidence snippets.",
	}, s.makeSearchHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every document in the library with filename, format and size metadata.",
	}, s.makeListHandler())

	s.server = server
	return s
}

func (s *Server) tenantOf(requested string) string {
	if requested != "" {
		return requested
	}
	if s.defaultTenant != "" {
		return s.defaultTenant
	}
	return "default"
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Default: false (stateful).
	Stateless bool
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable
// HTTP transport. Mountable on any mux path (e.g. "/mcp").
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}
	sdkOpts := &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	}
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, sdkOpts)
}

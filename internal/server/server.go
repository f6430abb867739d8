// Package server exposes the query pipeline over HTTP: blocking and
// streaming query endpoints, the deterministic compute endpoint, export
// downloads and a health check.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/orchestrator"
	"github.com/paytechai/docquery/internal/store"
)

// DefaultTenant scopes requests that carry no tenant id.
const DefaultTenant = "default"

// maxTurnMessages bounds the conversation window handed to the model.
const maxTurnMessages = 20

// HealthChecker reports chunk store connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server wires the HTTP surface to the orchestrator and stores.
type Server struct {
	orch       *orchestrator.Orchestrator
	catalog    store.Catalog
	fullTexts  store.FullTexts
	health     HealthChecker
	exportsDir string
	logger     *slog.Logger
}

// Config holds the server's dependencies. Health may be nil when no chunk
// store backs the deployment.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Catalog      store.Catalog
	FullTexts    store.FullTexts
	Health       HealthChecker
	ExportsDir   string
	Logger       *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orch:       cfg.Orchestrator,
		catalog:    cfg.Catalog,
		fullTexts:  cfg.FullTexts,
		health:     cfg.Health,
		exportsDir: cfg.ExportsDir,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /query/stream", s.handleQueryStream)
	mux.HandleFunc("POST /compute", s.handleCompute)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.exportsDir != "" {
		mux.Handle("GET /exports/", http.StripPrefix("/exports/", http.FileServer(http.Dir(s.exportsDir))))
	}
	return mux
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryRequest struct {
	TenantID     string        `json:"tenant_id"`
	ThreadID     string        `json:"thread_id"`
	Title        string        `json:"title"`
	Question     string        `json:"question"`
	Messages     []chatMessage `json:"messages"`
	DocID        string        `json:"doc_id"`
	ShowSources  *bool         `json:"show_sources"`
	Precision    bool          `json:"precision"`
	ResponseMode string        `json:"response_mode"`
}

// turnFromRequest normalizes the request into an orchestrator turn. A bare
// question becomes a one-message conversation; show_sources defaults to on.
func turnFromRequest(req queryRequest) orchestrator.Turn {
	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		tenant = DefaultTenant
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
			messages = append(messages, llm.Message{Role: m.Role, Content: content})
		}
	}
	if q := strings.TrimSpace(req.Question); q != "" {
		messages = append(messages, llm.User(q))
	}
	if len(messages) > maxTurnMessages {
		messages = messages[len(messages)-maxTurnMessages:]
	}

	showSources := true
	if req.ShowSources != nil {
		showSources = *req.ShowSources
	}

	return orchestrator.Turn{
		TenantID:     tenant,
		ThreadKey:    strings.TrimSpace(req.ThreadID),
		Title:        req.Title,
		Messages:     messages,
		DocID:        strings.TrimSpace(req.DocID),
		ShowSources:  showSources,
		Precision:    req.Precision,
		ResponseMode: strings.ToLower(strings.TrimSpace(req.ResponseMode)),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status    string `json:"status"`
	Chunks    string `json:"chunks"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if s.health == nil {
		resp.Status = "healthy"
		resp.Chunks = "unconfigured"
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.health.Health(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Chunks = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "healthy"
	resp.Chunks = "connected"
	s.writeJSON(w, http.StatusOK, resp)
}

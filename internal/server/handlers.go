package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/orchestrator"
	"github.com/paytechai/docquery/internal/store"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	turn := turnFromRequest(req)
	if len(turn.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "question or messages required")
		return
	}

	res, err := s.orch.Resolve(r.Context(), turn)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("Query failed", "tenant", turn.TenantID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	turn := turnFromRequest(req)
	if len(turn.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "question or messages required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The orchestrator already terminates the stream with an error status;
	// nothing useful can be written after that.
	_ = s.orch.Stream(r.Context(), turn, func(e orchestrator.Event) error {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", e.Name, err)
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

type computeRequest struct {
	TenantID string             `json:"tenant_id"`
	DocID    string             `json:"doc_id"`
	Op       string             `json:"op"`
	Arg      string             `json:"arg"`
	Flags    intent.ComputeFlags `json:"flags"`
}

type computeResponse struct {
	OK     bool           `json:"ok"`
	Op     string         `json:"op"`
	Result any            `json:"result"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// handleCompute runs one deterministic text operation against a document's
// full text. No generative model is ever involved.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenant := req.TenantID
	if tenant == "" {
		tenant = DefaultTenant
	}
	if req.DocID == "" {
		s.writeError(w, http.StatusBadRequest, "doc_id required")
		return
	}

	doc, err := s.catalog.GetDocument(r.Context(), tenant, req.DocID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("Document lookup failed", "doc_id", req.DocID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}

	text, err := s.fullTexts.Load(tenant, doc.ID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, "document text not found")
			return
		}
		s.logger.Error("Full text load failed", "doc_id", req.DocID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "document text unavailable")
		return
	}

	res, err := intent.Compute(text, req.Op, req.Arg, req.Flags)
	if err != nil {
		if errors.Is(err, intent.ErrInvalidArgument) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Compute failed", "op", req.Op, "error", err)
		s.writeError(w, http.StatusInternalServerError, "compute failed")
		return
	}
	s.writeJSON(w, http.StatusOK, computeResponse{OK: true, Op: res.Op, Result: res.Result, Meta: res.Meta})
}

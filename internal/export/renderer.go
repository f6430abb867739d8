// Package export renders conversation transcripts into downloadable files.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/orchestrator"
	"github.com/paytechai/docquery/internal/planner"
)

// FileRenderer writes artifacts to a directory served under baseURL.
type FileRenderer struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

// NewFileRenderer creates the renderer and its output directory.
func NewFileRenderer(dir, baseURL string, logger *slog.Logger) (*FileRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports dir: %w", err)
	}
	return &FileRenderer{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}, nil
}

// Render produces one artifact file. Supported formats: pdf, docx.
func (r *FileRenderer) Render(ctx context.Context, format string, conv orchestrator.Conversation) (orchestrator.Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case planner.ExportPDF:
		data, err = renderPDF(conv)
	case planner.ExportDocx:
		data, err = renderDocx(conv)
	default:
		return orchestrator.Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return orchestrator.Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}

	name := fmt.Sprintf("artifact-%s.%s", strings.ReplaceAll(uuid.NewString(), "-", ""), format)
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return orchestrator.Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	r.logger.Info("Artifact rendered", "format", format, "name", name, "bytes", len(data))

	return orchestrator.Artifact{
		Type: format,
		Name: name,
		URL:  r.baseURL + "/" + name,
	}, nil
}

func conversationTitle(conv orchestrator.Conversation) string {
	t := strings.TrimSpace(conv.Title)
	if t == "" {
		return "Conversa"
	}
	return t
}

func roleLabel(role string) string {
	switch role {
	case llm.RoleUser:
		return "Você"
	case llm.RoleAssistant:
		return "Assistente"
	default:
		return "Sistema"
	}
}

func exportHeader(conv orchestrator.Conversation) []string {
	return []string{
		"Conversa – " + conversationTitle(conv),
		"Data/hora de exportação: " + time.Now().Format("2006-01-02 15:04"),
		"Sessão: " + conv.ID,
	}
}

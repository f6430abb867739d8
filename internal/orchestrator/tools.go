package orchestrator

import (
	"context"
	"fmt"

	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/planner"
	"github.com/paytechai/docquery/internal/retrieval"
)

// Renderer produces an export artifact from a conversation. Implementations
// own the output directory and URL scheme.
type Renderer interface {
	Render(ctx context.Context, format string, conv Conversation) (Artifact, error)
}

// Conversation is the material handed to the renderer.
type Conversation struct {
	ID       string
	Title    string
	Messages []llm.Message
}

// ToolResult carries everything the tool phase produced.
type ToolResult struct {
	Sources   []Source
	Artifacts []Artifact
}

// runTools executes the plan's retrieval and export work. Runs inside the
// tools pool; a deadline on ctx abandons the whole phase.
func (o *Orchestrator) runTools(ctx context.Context, tenantID string, plan planner.Plan, conv Conversation) (ToolResult, error) {
	var res ToolResult

	if plan.NeedsRetrieval && o.retriever != nil {
		// Retrieve falls back to DefaultTopK when topK is zero.
		hits := o.retriever.Retrieve(ctx, tenantID, plan.Query, o.topK)
		res.Sources = sourcesFromHits(hits, plan.Query)
	}

	if plan.NeedsExport != planner.ExportNone && o.renderer != nil {
		for _, format := range exportFormats(plan.NeedsExport) {
			a, err := o.renderer.Render(ctx, format, conv)
			if err != nil {
				return res, fmt.Errorf("render %s: %w", format, err)
			}
			res.Artifacts = append(res.Artifacts, a)
		}
	}
	return res, nil
}

func exportFormats(needs string) []string {
	switch needs {
	case planner.ExportBoth:
		return []string{planner.ExportDocx, planner.ExportPDF}
	case planner.ExportPDF, planner.ExportDocx:
		return []string{needs}
	default:
		return nil
	}
}

func sourcesFromHits(hits []retrieval.Hit, query string) []Source {
	terms := retrieval.QueryTerms(query)
	out := make([]Source, 0, len(hits))
	for i, h := range hits {
		out = append(out, Source{
			Ref:      i + 1,
			DocID:    h.DocID,
			Filename: h.Filename,
			Snippet:  retrieval.Snippet(h.Text, terms, retrieval.DefaultSnippetLen),
			Page:     h.Page,
			Sheet:    h.Sheet,
			Score:    h.Score,
		})
	}
	return out
}

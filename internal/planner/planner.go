// Package planner turns a user message into an execution plan. A cheap
// deterministic pass runs first; the LLM is consulted only when the message
// gives no signal at all, so obvious requests never wait on a model call.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/worker"
)

// DefaultTimeout bounds the LLM planning call. The heuristic plan is used
// when the call does not come back in time.
const DefaultTimeout = 4 * time.Second

// Export destinations a plan may request.
const (
	ExportNone = "none"
	ExportPDF  = "pdf"
	ExportDocx = "docx"
	ExportBoth = "both"
)

// Response modes a plan may request.
const (
	ModeNormal    = "normal"
	ModeDidatico  = "didatico"
	ModeExecutivo = "executivo"
	ModeTecnico   = "tecnico"
)

// Plan describes what a turn needs before answering.
type Plan struct {
	NeedsRetrieval  bool   `json:"needs_rag"`
	NeedsExport     string `json:"needs_export"`
	Query           string `json:"query"`
	ResponseMode    string `json:"response_mode"`
	MustCiteSources bool   `json:"must_cite_sources"`
}

// DefaultPlan is the plan for a message with no signal.
func DefaultPlan() Plan {
	return Plan{
		NeedsRetrieval:  false,
		NeedsExport:     ExportNone,
		Query:           "",
		ResponseMode:    ModeNormal,
		MustCiteSources: false,
	}
}

var (
	retrievalCues = []string{"documento", "pdf", "csv", "xlsx", "planilha", "comprovante", "anexo", "downloads"}
	exportCues    = []string{"baixar", "exportar", "gerar pdf", "pdf", "docx", "word"}
	citeCues      = []string{"fonte", "fontes", "citar", "cite", "evidência", "evidencias"}
)

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// Heuristic builds a plan from lexical cues alone. It is deterministic and
// never fails.
func Heuristic(message string) Plan {
	plan := DefaultPlan()
	low := strings.ToLower(message)

	plan.NeedsRetrieval = containsAny(low, retrievalCues)

	if containsAny(low, exportCues) {
		switch {
		case strings.Contains(low, "docx") || strings.Contains(low, "word"):
			if strings.Contains(low, "pdf") {
				plan.NeedsExport = ExportBoth
			} else {
				plan.NeedsExport = ExportDocx
			}
		default:
			plan.NeedsExport = ExportPDF
		}
	}

	plan.MustCiteSources = plan.NeedsRetrieval && containsAny(low, citeCues)

	switch {
	case strings.Contains(low, "técnico") || strings.Contains(low, "tecnico"):
		plan.ResponseMode = ModeTecnico
	case strings.Contains(low, "executivo") || strings.Contains(low, "executiva"):
		plan.ResponseMode = ModeExecutivo
	case strings.Contains(low, "didático") || strings.Contains(low, "didatico") || strings.Contains(low, "explica"):
		plan.ResponseMode = ModeDidatico
	}

	plan.Query = strings.TrimSpace(message)
	return plan
}

const planPrompt = `Você é um planejador de atendimento. Dada a mensagem do usuário, responda SOMENTE com um JSON com os campos:
{"needs_rag": bool, "needs_export": "none|pdf|docx|both", "query": string, "response_mode": "normal|didatico|executivo|tecnico", "must_cite_sources": bool}
- needs_rag: true se a resposta depende de documentos enviados pelo usuário.
- needs_export: formato de arquivo pedido, ou "none".
- query: a consulta de busca reformulada, ou a própria mensagem.
- must_cite_sources: true se o usuário pediu fontes ou evidências.
Não escreva nada além do JSON.`

// Planner combines the heuristic pass with a pooled, time-bounded LLM call.
type Planner struct {
	llm     llm.Client
	pool    *worker.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a planner. client may be nil, in which case planning is
// heuristic-only.
func New(client llm.Client, pool *worker.Pool, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{llm: client, pool: pool, timeout: DefaultTimeout, logger: logger}
}

// SetTimeout overrides the LLM planning deadline. Non-positive values are
// ignored.
func (p *Planner) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// Plan produces the plan for a message. The LLM is consulted only when the
// heuristic found no retrieval, export or citation signal; any LLM failure
// falls back to the heuristic plan.
func (p *Planner) Plan(ctx context.Context, message string) Plan {
	plan := Heuristic(message)

	hasSignal := plan.NeedsRetrieval || plan.NeedsExport != ExportNone || plan.MustCiteSources
	if hasSignal || strings.TrimSpace(message) == "" || p.llm == nil || p.pool == nil {
		return plan
	}

	raw, err := p.pool.Submit(ctx, p.timeout, func(taskCtx context.Context) (any, error) {
		return p.llm.Complete(taskCtx, []llm.Message{
			llm.System(planPrompt),
			llm.User(message),
		}, 0)
	})
	if err != nil {
		p.logger.Warn("LLM planning failed, using heuristic plan", "error", err)
		return plan
	}

	text, _ := raw.(string)
	parsed, ok := extractJSON(text)
	if !ok {
		p.logger.Warn("LLM plan had no parseable JSON, using heuristic plan")
		return plan
	}
	return normalize(parsed, message)
}

var (
	fencedJSONRE = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceSpanRE  = regexp.MustCompile(`(?s)(\{.*\})`)
)

// extractJSON pulls a plan object out of model output: direct parse first,
// then a fenced code block, then the widest brace span.
func extractJSON(text string) (Plan, bool) {
	text = strings.TrimSpace(text)

	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err == nil {
		return plan, true
	}
	if m := fencedJSONRE.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &plan); err == nil {
			return plan, true
		}
	}
	if m := braceSpanRE.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &plan); err == nil {
			return plan, true
		}
	}
	return Plan{}, false
}

// normalize clamps enum fields to known values and guarantees a non-empty
// query when retrieval is on.
func normalize(plan Plan, message string) Plan {
	switch plan.NeedsExport {
	case ExportNone, ExportPDF, ExportDocx, ExportBoth:
	default:
		plan.NeedsExport = ExportNone
	}
	switch plan.ResponseMode {
	case ModeNormal, ModeDidatico, ModeExecutivo, ModeTecnico:
	default:
		plan.ResponseMode = ModeNormal
	}
	plan.Query = strings.TrimSpace(plan.Query)
	if plan.NeedsRetrieval && plan.Query == "" {
		plan.Query = strings.TrimSpace(message)
	}
	return plan
}

// String renders the plan for logs.
func (p Plan) String() string {
	return fmt.Sprintf("rag=%t export=%s mode=%s cite=%t", p.NeedsRetrieval, p.NeedsExport, p.ResponseMode, p.MustCiteSources)
}

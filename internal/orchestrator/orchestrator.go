// Package orchestrator runs one conversational turn end to end: session
// gating, deterministic answering, planning, pooled tool execution, evidence
// assembly and streamed generation. Everything that can stall degrades
// instead of blocking the stream.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paytechai/docquery/internal/docsession"
	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/planner"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
	"github.com/paytechai/docquery/internal/worker"
)

const (
	// DefaultToolTimeout bounds the retrieval+export phase of one turn.
	DefaultToolTimeout = 8 * time.Second

	temperatureGeneral = 0.6
	temperatureRAG     = 0.3

	// summaryPrefixRunes bounds the document prefix handed to the model for
	// summarization requests in document mode.
	summaryPrefixRunes = 6000

	// maxDocEvidenceBlocks caps line-window evidence in document mode.
	maxDocEvidenceBlocks = 8
)

// Turn is one request against the orchestrator.
type Turn struct {
	TenantID  string
	ThreadKey string
	Title     string
	// Messages is the trimmed conversation; the last user message is the one
	// being answered.
	Messages []llm.Message
	// DocID pins the turn to an explicit document, bypassing session state.
	DocID string
	// ShowSources controls the sources event/field.
	ShowSources bool
	// Precision disables the generative fallback in document mode: a question
	// the deterministic engine cannot answer gets the sentinel.
	Precision bool
	// ResponseMode overrides the planned response mode when set.
	ResponseMode string
}

// Result is the blocking-call view of a turn.
type Result struct {
	Answer    string     `json:"answer"`
	Sources   []Source   `json:"sources,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	MessageID string     `json:"message_id"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Deps wires the orchestrator's collaborators. Catalog, fullTexts and llm are
// required; the rest may be nil and their phases are skipped.
type Deps struct {
	Catalog   store.Catalog
	FullTexts store.FullTexts
	Retriever *retrieval.Retriever
	Engine    *intent.Engine
	Sessions  *docsession.Tracker
	Planner   *planner.Planner
	LLM       llm.Client
	ToolsPool *worker.Pool
	Renderer  Renderer
	Logger    *slog.Logger
	// ToolTimeout overrides DefaultToolTimeout when positive.
	ToolTimeout time.Duration
	// TopK overrides the retrieval result count when positive.
	TopK int
}

type Orchestrator struct {
	catalog     store.Catalog
	fullTexts   store.FullTexts
	retriever   *retrieval.Retriever
	engine      *intent.Engine
	sessions    *docsession.Tracker
	planner     *planner.Planner
	llm         llm.Client
	tools       *worker.Pool
	renderer    Renderer
	logger      *slog.Logger
	toolTimeout time.Duration
	topK        int
}

func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	toolTimeout := d.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = DefaultToolTimeout
	}
	return &Orchestrator{
		catalog:     d.Catalog,
		fullTexts:   d.FullTexts,
		retriever:   d.Retriever,
		engine:      d.Engine,
		sessions:    d.Sessions,
		planner:     d.Planner,
		llm:         d.LLM,
		tools:       d.ToolsPool,
		renderer:    d.Renderer,
		logger:      logger,
		toolTimeout: toolTimeout,
		topK:        d.TopK,
	}
}

// Stream runs the turn and emits events in order. A done or error status is
// always the last event; any error from emit aborts the turn.
func (o *Orchestrator) Stream(ctx context.Context, turn Turn, emit func(Event) error) error {
	messageID := uuid.NewString()
	err := o.stream(ctx, turn, messageID, emit)
	if err != nil {
		o.logger.Error("Turn failed", "tenant", turn.TenantID, "thread", turn.ThreadKey, "error", err)
		_ = emit(Event{Name: "status", Data: StatusPayload{Phase: PhaseError, MessageID: messageID, Message: err.Error()}})
		return err
	}
	return emit(Event{Name: "status", Data: StatusPayload{Phase: PhaseDone, MessageID: messageID}})
}

// Resolve runs the turn without streaming and returns the collected result.
func (o *Orchestrator) Resolve(ctx context.Context, turn Turn) (Result, error) {
	res := Result{MessageID: uuid.NewString()}
	var answer strings.Builder
	err := o.stream(ctx, turn, res.MessageID, func(e Event) error {
		switch data := e.Data.(type) {
		case DeltaPayload:
			answer.WriteString(data.Text)
		case SourcesPayload:
			res.Sources = data.Items
		case Artifact:
			res.Artifacts = append(res.Artifacts, data)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Answer = strings.TrimSpace(answer.String())
	return res, nil
}

func (o *Orchestrator) stream(ctx context.Context, turn Turn, messageID string, emit func(Event) error) error {
	if err := emit(statusEvent(PhaseThinking)); err != nil {
		return err
	}
	message := lastUserMessage(turn.Messages)

	// Fast path: a library listing never needs planning or tools.
	if isListDocumentsRequest(message) {
		docs, err := o.catalog.ListDocuments(ctx, turn.TenantID)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		if err := emit(statusEvent(PhaseAnswer)); err != nil {
			return err
		}
		if err := emit(deltaEvent(formatDocumentList(docs))); err != nil {
			return err
		}
		return nil
	}

	doc, mode, err := o.resolveDocumentMode(ctx, turn, message)
	if err != nil {
		return err
	}
	switch mode {
	case gateAck:
		if err := emit(statusEvent(PhaseAnswer)); err != nil {
			return err
		}
		return emit(deltaEvent(doc.ack))
	case gateActive:
		return o.answerWithDocument(ctx, turn, message, doc.doc, emit)
	}

	return o.answerGeneral(ctx, turn, message, emit)
}

type gateMode int

const (
	gateNone gateMode = iota
	gateAck
	gateActive
)

type gateResult struct {
	doc store.Document
	ack string
}

// resolveDocumentMode applies the explicit doc id and the session state
// machine. Unknown explicit ids are hard failures; session store trouble only
// degrades to the general path.
func (o *Orchestrator) resolveDocumentMode(ctx context.Context, turn Turn, message string) (gateResult, gateMode, error) {
	if turn.DocID != "" {
		doc, err := o.catalog.GetDocument(ctx, turn.TenantID, turn.DocID)
		if err != nil {
			return gateResult{}, gateNone, fmt.Errorf("document %s: %w", turn.DocID, err)
		}
		return gateResult{doc: doc}, gateActive, nil
	}
	if o.sessions == nil {
		return gateResult{}, gateNone, nil
	}

	dec, err := o.sessions.Observe(ctx, turn.TenantID, turn.ThreadKey, message)
	if err != nil {
		o.logger.Warn("Session observation failed, answering without document mode", "error", err)
		return gateResult{}, gateNone, nil
	}
	switch dec.Kind {
	case docsession.KindSelectedAck, docsession.KindExited:
		return gateResult{ack: dec.Ack}, gateAck, nil
	case docsession.KindSelected:
	default:
		if !dec.State.Active {
			return gateResult{}, gateNone, nil
		}
	}

	doc, err := o.catalog.GetDocument(ctx, turn.TenantID, dec.State.DocID)
	if err != nil {
		o.logger.Warn("Active document vanished, clearing session", "doc_id", dec.State.DocID, "error", err)
		if clearErr := o.sessions.Clear(ctx, turn.TenantID, turn.ThreadKey); clearErr != nil {
			o.logger.Warn("Session clear failed", "error", clearErr)
		}
		return gateResult{}, gateNone, nil
	}
	return gateResult{doc: doc}, gateActive, nil
}

// answerWithDocument answers using only the pinned document's evidence:
// deterministic engine first, then a generative fallback fed line-context
// windows from that document alone.
func (o *Orchestrator) answerWithDocument(ctx context.Context, turn Turn, message string, doc store.Document, emit func(Event) error) error {
	docSources := []Source{{Ref: 1, DocID: doc.ID, Filename: doc.Filename}}

	if q, ok := intent.Classify(message); ok && o.engine != nil {
		if ans, handled := o.engine.Execute(ctx, q, doc); handled {
			if err := emit(statusEvent(PhaseAnswer)); err != nil {
				return err
			}
			if err := emit(deltaEvent(ans.Text)); err != nil {
				return err
			}
			if turn.ShowSources {
				return emit(sourcesEvent(docSources))
			}
			return nil
		}
	}

	if turn.Precision {
		if err := emit(statusEvent(PhaseAnswer)); err != nil {
			return err
		}
		return emit(deltaEvent(intent.NotFoundAnswer))
	}

	blocks := o.documentEvidence(turn.TenantID, doc, message)
	messages := []llm.Message{
		llm.System(analystPrompt(blocks)),
		llm.System(modePrompt(turn.ResponseMode)),
	}
	messages = append(messages, turn.Messages...)

	if err := emit(statusEvent(PhaseAnswer)); err != nil {
		return err
	}
	answer, emitErr, llmErr := o.streamAnswer(ctx, messages, temperatureRAG, emit)
	if emitErr != nil {
		return emitErr
	}
	if llmErr != nil {
		o.logger.Warn("Generation failed in document mode", "doc_id", doc.ID, "error", llmErr)
	}

	verified, _ := verifyAnswer(planner.DefaultPlan(), answer, docSources)
	if suffix := appendSuffix(strings.TrimSpace(answer), verified); suffix != "" {
		if err := emit(deltaEvent(suffix)); err != nil {
			return err
		}
	}
	if turn.ShowSources {
		return emit(sourcesEvent(docSources))
	}
	return nil
}

// documentEvidence builds the context blocks for the generative fallback.
// Summarization requests get a bounded prefix of the full text; everything
// else gets line windows around query term hits. Only the pinned document is
// ever read.
func (o *Orchestrator) documentEvidence(tenantID string, doc store.Document, message string) []contextBlock {
	text, err := o.fullTexts.Load(tenantID, doc.ID)
	if err != nil {
		o.logger.Warn("Full text unavailable for document mode", "doc_id", doc.ID, "error", err)
		return nil
	}

	if isSummaryRequest(message) {
		runes := []rune(text)
		if len(runes) > summaryPrefixRunes {
			runes = runes[:summaryPrefixRunes]
		}
		return []contextBlock{{Filename: doc.Filename, Text: string(runes)}}
	}

	var blocks []contextBlock
	seen := make(map[string]bool)
	for _, term := range retrieval.QueryTerms(message) {
		for _, window := range intent.FindLinesWithKeyword(text, term, 2, maxDocEvidenceBlocks) {
			if seen[window] {
				continue
			}
			seen[window] = true
			blocks = append(blocks, contextBlock{Filename: doc.Filename, Text: window})
			if len(blocks) >= maxDocEvidenceBlocks {
				return blocks
			}
		}
	}
	if len(blocks) == 0 {
		// No term hit anywhere; fall back to the prefix so the model still
		// sees the document rather than hallucinating about it.
		runes := []rune(text)
		if len(runes) > summaryPrefixRunes {
			runes = runes[:summaryPrefixRunes]
		}
		blocks = append(blocks, contextBlock{Filename: doc.Filename, Text: string(runes)})
	}
	return blocks
}

// answerGeneral is the plan → tools → evidence → stream path.
func (o *Orchestrator) answerGeneral(ctx context.Context, turn Turn, message string, emit func(Event) error) error {
	var plan planner.Plan
	if o.planner != nil {
		plan = o.planner.Plan(ctx, message)
	} else {
		plan = planner.Heuristic(message)
	}
	if turn.ResponseMode != "" {
		plan.ResponseMode = turn.ResponseMode
	}

	toolPhase := plan.NeedsRetrieval || plan.NeedsExport != planner.ExportNone
	var tools ToolResult
	if toolPhase {
		if err := emit(statusEvent(PhaseTool)); err != nil {
			return err
		}
		tools = o.runToolsPooled(ctx, turn, plan)
	}

	messages := []llm.Message{llm.System(modePrompt(plan.ResponseMode))}
	if evidence := evidenceBlock(tools.Sources); evidence != "" {
		messages = append(messages, llm.System(evidence))
		if plan.MustCiteSources {
			messages = append(messages, llm.System(citePrompt))
		}
	}
	messages = append(messages, turn.Messages...)

	if err := emit(statusEvent(PhaseAnswer)); err != nil {
		return err
	}
	answer, emitErr, llmErr := o.streamAnswer(ctx, messages, temperatureFor(plan), emit)
	if emitErr != nil {
		return emitErr
	}
	if llmErr != nil {
		o.logger.Warn("Generation failed", "error", llmErr)
	}

	verified, warnings := verifyAnswer(plan, answer, tools.Sources)
	if len(warnings) > 0 {
		o.logger.Warn("Answer needed correction", "warnings", strings.Join(warnings, ","))
	}
	if suffix := appendSuffix(strings.TrimSpace(answer), verified); suffix != "" {
		if err := emit(deltaEvent(suffix)); err != nil {
			return err
		}
	}

	if turn.ShowSources && len(tools.Sources) > 0 {
		if err := emit(sourcesEvent(tools.Sources)); err != nil {
			return err
		}
	}
	for _, a := range tools.Artifacts {
		if err := emit(artifactEvent(a)); err != nil {
			return err
		}
	}
	return nil
}

// runToolsPooled submits the tool phase to the pool. Timeouts and pool
// trouble degrade to an empty result; the turn always proceeds.
func (o *Orchestrator) runToolsPooled(ctx context.Context, turn Turn, plan planner.Plan) ToolResult {
	conv := Conversation{ID: turn.ThreadKey, Title: turn.Title, Messages: turn.Messages}
	if o.tools == nil {
		res, err := o.runTools(ctx, turn.TenantID, plan, conv)
		if err != nil {
			o.logger.Warn("Tool phase failed", "error", err)
		}
		return res
	}

	raw, err := o.tools.Submit(ctx, o.toolTimeout, func(taskCtx context.Context) (any, error) {
		return o.runTools(taskCtx, turn.TenantID, plan, conv)
	})
	if err != nil {
		o.logger.Warn("Tool phase abandoned", "error", err)
		return ToolResult{}
	}
	res, _ := raw.(ToolResult)
	return res
}

// streamAnswer emits one delta per model increment and returns the full text.
// Emit errors abort; model errors are returned separately so partial output
// is still verified.
func (o *Orchestrator) streamAnswer(ctx context.Context, messages []llm.Message, temperature float64, emit func(Event) error) (answer string, emitErr, llmErr error) {
	if o.llm == nil {
		return "", nil, nil
	}
	answer, llmErr = o.llm.Stream(ctx, messages, temperature, func(delta string) {
		if emitErr != nil {
			return
		}
		emitErr = emit(deltaEvent(delta))
	})
	return answer, emitErr, llmErr
}

func temperatureFor(plan planner.Plan) float64 {
	if plan.NeedsRetrieval {
		return temperatureRAG
	}
	return temperatureGeneral
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

var listDocumentCues = []string{
	"quais documentos",
	"quais arquivos",
	"listar documentos",
	"liste os documentos",
	"meus documentos",
	"documentos armazen",
	"arquivos armazen",
	"documentos que você tem",
	"documentos disponíveis",
}

func isListDocumentsRequest(message string) bool {
	low := strings.ToLower(message)
	for _, cue := range listDocumentCues {
		if strings.Contains(low, cue) {
			return true
		}
	}
	return false
}

var summaryCues = []string{"resum", "sintetiz", "sumariz"}

func isSummaryRequest(message string) bool {
	low := strings.ToLower(message)
	for _, cue := range summaryCues {
		if strings.Contains(low, cue) {
			return true
		}
	}
	return false
}

const maxListedDocuments = 50

func formatDocumentList(docs []store.Document) string {
	if len(docs) == 0 {
		return "Não encontrei documentos na biblioteca.\n\n" +
			"Envie um PDF/CSV/XLSX/TXT e tente novamente."
	}
	lines := []string{"Documentos disponíveis na biblioteca:", ""}
	for i, d := range docs {
		if i >= maxListedDocuments {
			lines = append(lines, "", fmt.Sprintf("... e mais %d arquivo(s).", len(docs)-maxListedDocuments))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s (`%s`)", i+1, d.Filename, d.ID))
	}
	return strings.Join(lines, "\n")
}

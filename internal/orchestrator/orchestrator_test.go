package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytechai/docquery/internal/docsession"
	"github.com/paytechai/docquery/internal/intent"
	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/planner"
	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
	"github.com/paytechai/docquery/internal/worker"
)

type scriptedLLM struct {
	tokens []string
	calls  int
}

func (s *scriptedLLM) Complete(ctx context.Context, msgs []llm.Message, temperature float64) (string, error) {
	s.calls++
	return strings.Join(s.tokens, ""), nil
}

func (s *scriptedLLM) Stream(ctx context.Context, msgs []llm.Message, temperature float64, onDelta func(string)) (string, error) {
	s.calls++
	for _, tok := range s.tokens {
		onDelta(tok)
	}
	return strings.Join(s.tokens, ""), nil
}

type slowRenderer struct {
	delay time.Duration
}

func (r *slowRenderer) Render(ctx context.Context, format string, conv Conversation) (Artifact, error) {
	select {
	case <-time.After(r.delay):
		return Artifact{Type: format, Name: "artifact-test." + format, URL: "/exports/artifact-test." + format}, nil
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	}
}

type fixture struct {
	orch    *Orchestrator
	catalog store.Catalog
	texts   store.FullTexts
	chunks  *store.MemoryChunks
	llm     *scriptedLLM
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	dir := t.TempDir()
	catalog, err := store.NewSQLiteCatalog(dir)
	require.NoError(t, err)
	texts := store.NewDiskFullTexts(dir)
	chunks := store.NewMemoryChunks()
	logger := slog.New(slog.DiscardHandler)

	retriever := retrieval.New(chunks, nil, logger)
	pool := worker.NewPool("tools-test", 2, logger)
	pool.Start()
	t.Cleanup(pool.Drain)

	scripted := &scriptedLLM{tokens: []string{"Olá, ", "tudo ", "bem."}}
	deps := Deps{
		Catalog:   catalog,
		FullTexts: texts,
		Retriever: retriever,
		Engine:    intent.NewEngine(texts, logger),
		Sessions:  docsession.NewTracker(catalog, retriever, logger),
		Planner:   planner.New(nil, nil, logger),
		LLM:       scripted,
		ToolsPool: pool,
		Logger:    logger,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &fixture{orch: New(deps), catalog: catalog, texts: texts, chunks: chunks, llm: scripted}
}

func (f *fixture) addCSVDocument(t *testing.T, tenantID, docID, filename string) {
	t.Helper()
	text := "FONTE: " + filename + "\n" +
		"LINHAS: 3 | COLUNAS: 2\n" +
		"COLUNAS: nome, idade\n\n" +
		"AMOSTRA (primeiras 20 linhas):\n" +
		"nome  idade\nAna   31\nBruno 25\nCarla 40\n\n" +
		"DADOS (CSV linha-a-linha, até 2000 linhas):\n" +
		"nome,idade\nAna,31\nBruno,25\nCarla,40\n"
	_, err := f.texts.Save(tenantID, docID, text)
	require.NoError(t, err)
	require.NoError(t, f.catalog.UpsertDocument(context.Background(), store.Document{
		ID: docID, TenantID: tenantID, Filename: filename, Ext: "csv",
		TextChars: len(text), Rows: 3, Cols: 2, ColumnNames: []string{"nome", "idade"},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, f.chunks.UpsertChunks(context.Background(), []store.Chunk{
		{ID: docID + "-0", DocID: docID, TenantID: tenantID, Filename: filename, Ext: "csv", Index: 0, Text: text},
	}))
}

func collect(t *testing.T, orch *Orchestrator, turn Turn) ([]Event, error) {
	t.Helper()
	var events []Event
	err := orch.Stream(context.Background(), turn, func(e Event) error {
		events = append(events, e)
		return nil
	})
	return events, err
}

func deltasConcat(events []Event) string {
	var b strings.Builder
	for _, e := range events {
		if d, ok := e.Data.(DeltaPayload); ok {
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

func lastStatus(t *testing.T, events []Event) StatusPayload {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, "status", last.Name)
	return last.Data.(StatusPayload)
}

func TestStreamDeltasReconstructAnswer(t *testing.T) {
	f := newFixture(t, nil)
	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("bom dia")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá, tudo bem.", deltasConcat(events))
	assert.Equal(t, PhaseDone, lastStatus(t, events).Phase)
}

func TestStreamEventOrder(t *testing.T) {
	f := newFixture(t, nil)
	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1", ShowSources: true,
		Messages: []llm.Message{llm.User("o que diz o documento sobre prazos?")},
	})
	require.NoError(t, err)

	var phases []Phase
	for _, e := range events {
		if s, ok := e.Data.(StatusPayload); ok {
			phases = append(phases, s.Phase)
		}
	}
	assert.Equal(t, []Phase{PhaseThinking, PhaseTool, PhaseAnswer, PhaseDone}, phases)
}

func TestListDocumentsFastPath(t *testing.T) {
	f := newFixture(t, nil)
	f.addCSVDocument(t, "t1", "doc-1", "alunos.csv")

	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("quais documentos você tem aí?")},
	})
	require.NoError(t, err)
	answer := deltasConcat(events)
	assert.Contains(t, answer, "alunos.csv")
	assert.Contains(t, answer, "doc-1")
	assert.Equal(t, 0, f.llm.calls, "listing must not reach the model")
}

func TestBareSelectionShortCircuitsWithAck(t *testing.T) {
	f := newFixture(t, nil)
	f.addCSVDocument(t, "t1", "doc-1", "alunos.csv")

	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("usar o arquivo alunos.csv")},
	})
	require.NoError(t, err)
	assert.Contains(t, deltasConcat(events), "alunos.csv")
	assert.Equal(t, PhaseDone, lastStatus(t, events).Phase)
	assert.Equal(t, 0, f.llm.calls)
}

func TestActiveDocumentDeterministicAnswer(t *testing.T) {
	f := newFixture(t, nil)
	f.addCSVDocument(t, "t1", "doc-1", "alunos.csv")

	_, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("usar o arquivo alunos.csv")},
	})
	require.NoError(t, err)

	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1", ShowSources: true,
		Messages: []llm.Message{llm.User("quantas linhas tem a planilha?")},
	})
	require.NoError(t, err)
	assert.Equal(t, "3", deltasConcat(events))
	assert.Equal(t, 0, f.llm.calls)

	var sources []Source
	for _, e := range events {
		if s, ok := e.Data.(SourcesPayload); ok {
			sources = s.Items
		}
	}
	require.Len(t, sources, 1)
	assert.Equal(t, "alunos.csv", sources[0].Filename)
}

func TestSwitchingDocumentsMidSession(t *testing.T) {
	f := newFixture(t, nil)
	f.addCSVDocument(t, "t1", "doc-1", "alunos.csv")

	textB := "FONTE: turmas.csv\nLINHAS: 7 | COLUNAS: 2\nCOLUNAS: turma, sala\n\n" +
		"DADOS (CSV linha-a-linha, até 2000 linhas):\nturma,sala\n"
	_, err := f.texts.Save("t1", "doc-2", textB)
	require.NoError(t, err)
	require.NoError(t, f.catalog.UpsertDocument(context.Background(), store.Document{
		ID: "doc-2", TenantID: "t1", Filename: "turmas.csv", Ext: "csv", Rows: 7, Cols: 2,
		ColumnNames: []string{"turma", "sala"}, CreatedAt: time.Now(),
	}))

	for _, msg := range []string{"usar o arquivo alunos.csv", "usar o arquivo turmas.csv"} {
		_, err := collect(t, f.orch, Turn{TenantID: "t1", ThreadKey: "th1", Messages: []llm.Message{llm.User(msg)}})
		require.NoError(t, err)
	}

	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("quantas linhas tem a planilha?")},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", deltasConcat(events), "must answer from the latest selection")
}

func TestPrecisionModeReturnsSentinel(t *testing.T) {
	f := newFixture(t, nil)
	f.addCSVDocument(t, "t1", "doc-1", "alunos.csv")

	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1", DocID: "doc-1", Precision: true,
		Messages: []llm.Message{llm.User("me conte uma história sobre esse arquivo")},
	})
	require.NoError(t, err)
	assert.Equal(t, intent.NotFoundAnswer, deltasConcat(events))
	assert.Equal(t, 0, f.llm.calls)
}

func TestExplicitUnknownDocumentFails(t *testing.T) {
	f := newFixture(t, nil)
	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1", DocID: "nope",
		Messages: []llm.Message{llm.User("quantas linhas?")},
	})
	require.Error(t, err)
	assert.Equal(t, PhaseError, lastStatus(t, events).Phase)
}

func TestToolTimeoutStillCompletesTurn(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Renderer = &slowRenderer{delay: time.Second}
	})
	f.orch.toolTimeout = 50 * time.Millisecond

	start := time.Now()
	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1", ShowSources: true,
		Messages: []llm.Message{llm.User("gerar pdf do resumo, por favor")},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 800*time.Millisecond)
	assert.Equal(t, PhaseDone, lastStatus(t, events).Phase)
	for _, e := range events {
		assert.NotEqual(t, "artifact", e.Name, "abandoned tool phase must not yield artifacts")
		assert.NotEqual(t, "sources", e.Name)
	}
	assert.NotEmpty(t, deltasConcat(events), "the answer still streams")
}

func TestMustCiteWithoutSourcesAppendsSuffix(t *testing.T) {
	f := newFixture(t, nil)
	// Retrieval cue plus citation cue, but the chunk store is empty.
	events, err := collect(t, f.orch, Turn{
		TenantID: "t1", ThreadKey: "th1",
		Messages: []llm.Message{llm.User("cite as fontes do documento sobre prazos")},
	})
	require.NoError(t, err)
	answer := deltasConcat(events)
	assert.True(t, strings.HasPrefix(answer, "Olá, tudo bem."), "streamed text is never retracted")
	assert.Contains(t, answer, "Fontes: não encontrei evidências")
}

func TestResolveMatchesStream(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.orch.Resolve(context.Background(), Turn{
		TenantID: "t1", ThreadKey: "th-resolve",
		Messages: []llm.Message{llm.User("bom dia")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá, tudo bem.", res.Answer)
	assert.NotEmpty(t, res.MessageID)
}

func TestVerifyAnswerEmpty(t *testing.T) {
	text, warnings := verifyAnswer(planner.DefaultPlan(), "   ", nil)
	assert.Equal(t, emptyAnswerFallback, text)
	assert.Contains(t, warnings, "empty_answer")
}

func TestAppendSuffix(t *testing.T) {
	assert.Equal(t, "", appendSuffix("abc", "abc"))
	assert.Equal(t, " def", appendSuffix("abc", "abc def"))
	assert.Equal(t, "\n\nxyz", appendSuffix("abc", "xyz"))
}

func TestEvidenceBlockRendering(t *testing.T) {
	block := evidenceBlock([]Source{
		{Ref: 1, Filename: "contrato.pdf", Snippet: "prazo de 30 dias", Page: 2},
		{Ref: 2, Filename: "vendas.xlsx", Snippet: "total 100", Sheet: "Resumo"},
	})
	assert.Contains(t, block, "Evidências (documentos do usuário):")
	assert.Contains(t, block, "[1] contrato.pdf (p.2)\nprazo de 30 dias")
	assert.Contains(t, block, "[2] vendas.xlsx (aba Resumo)\ntotal 100")
	assert.Equal(t, "", evidenceBlock(nil))
}

func TestFormatDocumentListTruncates(t *testing.T) {
	docs := make([]store.Document, 55)
	for i := range docs {
		docs[i] = store.Document{ID: fmt.Sprintf("doc-%d", i), Filename: fmt.Sprintf("f%d.txt", i)}
	}
	out := formatDocumentList(docs)
	assert.Contains(t, out, "... e mais 5 arquivo(s).")
	assert.NotContains(t, out, "f54.txt")
}

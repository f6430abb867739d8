package intent

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytechai/docquery/internal/store"
)

const alunosText = `FONTE: alunos.csv
LINHAS: 3 | COLUNAS: 3
COLUNAS: nome, idade, nota

AMOSTRA (primeiras 20 linhas):
nome   idade  nota
Ana    20     8
Bruno  22     7
Carla  21     9

DADOS (CSV linha-a-linha, até 2000 linhas):
nome,idade,nota
Ana,20,8
Bruno,22,7
Carla,21,9
`

func newTestEngine(t *testing.T, tenantID, docID, text string) (*Engine, store.Document) {
	t.Helper()
	fullTexts := store.NewDiskFullTexts(t.TempDir())
	_, err := fullTexts.Save(tenantID, docID, text)
	require.NoError(t, err)

	doc := store.Document{ID: docID, TenantID: tenantID, Filename: "alunos.csv", Ext: "csv"}
	return NewEngine(fullTexts, slog.Default()), doc
}

func executeQuestion(t *testing.T, e *Engine, doc store.Document, question string) string {
	t.Helper()
	q, ok := Classify(question)
	require.True(t, ok, "expected %q to classify", question)
	answer, handled := e.Execute(context.Background(), q, doc)
	require.True(t, handled)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, doc.ID, answer.Sources[0].DocID)
	return answer.Text
}

func TestExecutePunctuationCount(t *testing.T) {
	e, doc := newTestEngine(t, "t", "d1", "ok?\nsim?\nperfeito")
	assert.Equal(t, "2", executeQuestion(t, e, doc, "Quantos pontos de interrogação existem?"))
}

func TestExecuteTableStats(t *testing.T) {
	e, doc := newTestEngine(t, "t", "d1", alunosText)
	doc.Rows = 3
	doc.Cols = 3
	doc.ColumnNames = []string{"nome", "idade", "nota"}

	assert.Equal(t, "3", executeQuestion(t, e, doc, "quantas linhas tem a tabela?"))
	assert.Equal(t, "3", executeQuestion(t, e, doc, "quantas colunas?"))
	assert.Equal(t, "nome, idade, nota", executeQuestion(t, e, doc, "quais são as colunas?"))
}

func TestExecuteStatsRecomputedFromText(t *testing.T) {
	// Catalog stats missing: recomputed lazily from the rendered text.
	e, doc := newTestEngine(t, "t", "d1", alunosText)

	assert.Equal(t, "3", executeQuestion(t, e, doc, "quantas linhas tem a tabela?"))
	assert.Equal(t, "nome, idade, nota", executeQuestion(t, e, doc, "quais são as colunas?"))
}

func TestExecuteRecordCount(t *testing.T) {
	e, doc := newTestEngine(t, "t", "d1", alunosText)
	doc.Rows = 3
	assert.Equal(t, "3", executeQuestion(t, e, doc, "Quantos alunos tem?"))
}

func TestExecuteListNamesFromColumn(t *testing.T) {
	e, doc := newTestEngine(t, "t", "d1", alunosText)
	assert.Equal(t, "Ana\nBruno\nCarla", executeQuestion(t, e, doc, "Liste todos os nomes"))
}

func TestExecuteExtractionFamilies(t *testing.T) {
	text := `Contrato de serviço
CPF do contratante: 123.456.789-01
Vencimento em 10/03/2026
Valor total: R$ 1.234,56 à vista
Pagamento em 12 parcelas mensais`
	e, doc := newTestEngine(t, "t", "d1", text)

	assert.Equal(t, "CPF do contratante: 123.456.789-01",
		executeQuestion(t, e, doc, "Qual o CPF do contratante?"))
	assert.Equal(t, "Vencimento em 10/03/2026",
		executeQuestion(t, e, doc, "qual a data de vencimento?"))
	assert.Equal(t, "Valor total: R$ 1.234,56 à vista",
		executeQuestion(t, e, doc, "qual o valor total?"))
	assert.Equal(t, "Pagamento em 12 parcelas mensais",
		executeQuestion(t, e, doc, "quantas parcelas?"))
}

func TestExecuteExtractionNotFoundSentinel(t *testing.T) {
	e, doc := newTestEngine(t, "t", "d1", "texto sem nenhum padrão conhecido")
	got := executeQuestion(t, e, doc, "qual o valor total?")
	assert.Equal(t, NotFoundAnswer, got)
	assert.NotEmpty(t, got)
}

func TestExecuteNeedleCountAndListing(t *testing.T) {
	text := "multa de 2%\ncláusula sem menção\noutra multa aplicável"
	e, doc := newTestEngine(t, "t", "d1", text)

	assert.Equal(t, "2", executeQuestion(t, e, doc, `quantas vezes aparece "multa"?`))

	listed := executeQuestion(t, e, doc, `mostre os trechos com "multa"`)
	assert.Contains(t, listed, "multa de 2%")
	assert.Contains(t, listed, "outra multa aplicável")
}

func TestExecuteMissingFullText(t *testing.T) {
	fullTexts := store.NewDiskFullTexts(t.TempDir())
	e := NewEngine(fullTexts, slog.Default())
	doc := store.Document{ID: "missing", TenantID: "t", Filename: "x.txt"}

	q, ok := Classify("quantos caracteres tem?")
	require.True(t, ok)
	_, handled := e.Execute(context.Background(), q, doc)
	assert.False(t, handled)
}

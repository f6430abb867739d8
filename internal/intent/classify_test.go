package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyOK(t *testing.T, question string) *Query {
	t.Helper()
	q, ok := Classify(question)
	require.True(t, ok, "expected %q to classify", question)
	return q
}

func TestClassifyPunctuationCount(t *testing.T) {
	q := classifyOK(t, "Quantos pontos de interrogação existem?")
	assert.Equal(t, ActionCount, q.Action)
	assert.Equal(t, TargetPunct, q.Target)
	assert.Equal(t, "?", q.Needle)

	q = classifyOK(t, "quantas vírgulas tem o texto?")
	assert.Equal(t, ",", q.Needle)

	q = classifyOK(t, `quantos "#" aparecem no documento?`)
	assert.Equal(t, TargetPunct, q.Target)
	assert.Equal(t, "#", q.Needle)
}

func TestClassifyCharAndWordCount(t *testing.T) {
	q := classifyOK(t, "quantos caracteres tem o documento?")
	assert.Equal(t, ActionCount, q.Action)
	assert.Equal(t, TargetChars, q.Target)

	q = classifyOK(t, "Quantas palavras existem no texto?")
	assert.Equal(t, TargetWords, q.Target)
}

func TestClassifyTableStats(t *testing.T) {
	q := classifyOK(t, "quantas linhas tem a planilha?")
	assert.Equal(t, ActionStats, q.Action)
	assert.Equal(t, TargetRows, q.Target)

	q = classifyOK(t, "quantas colunas?")
	assert.Equal(t, TargetCols, q.Target)

	q = classifyOK(t, "Quais são as colunas?")
	assert.Equal(t, TargetColumns, q.Target)
}

func TestClassifyFieldExtraction(t *testing.T) {
	q := classifyOK(t, "Qual o CPF do contratante?")
	assert.Equal(t, ActionExtract, q.Action)
	assert.Equal(t, FieldIdentity, q.Field)

	q = classifyOK(t, "qual a data de vencimento?")
	assert.Equal(t, FieldDate, q.Field)

	q = classifyOK(t, "Qual o valor total do contrato?")
	assert.Equal(t, FieldCurrency, q.Field)

	// "quantas parcelas" is extraction, not a record count.
	q = classifyOK(t, "Quantas parcelas tem o financiamento?")
	assert.Equal(t, ActionExtract, q.Action)
	assert.Equal(t, FieldInstallment, q.Field)
}

func TestClassifyRecordCount(t *testing.T) {
	q := classifyOK(t, "Quantos alunos tem?")
	assert.Equal(t, ActionCount, q.Action)
	assert.Equal(t, TargetRecords, q.Target)
	assert.Equal(t, "alunos", q.Needle)
}

func TestClassifyNeedleOccurrences(t *testing.T) {
	q := classifyOK(t, `quantas vezes aparece "multa" no contrato?`)
	assert.Equal(t, ActionCount, q.Action)
	assert.Equal(t, TargetNeedle, q.Target)
	assert.Equal(t, "multa", q.Needle)

	q = classifyOK(t, `mostre os trechos com "rescisão"`)
	assert.Equal(t, ActionList, q.Action)
	assert.Equal(t, "rescisão", q.Needle)
}

func TestClassifyListAll(t *testing.T) {
	q := classifyOK(t, "Liste todos os nomes")
	assert.Equal(t, ActionList, q.Action)
	assert.Equal(t, TargetNames, q.Target)
	assert.Equal(t, "nomes", q.Needle)

	q = classifyOK(t, "liste todas as cláusulas")
	assert.Equal(t, TargetGeneric, q.Target)
}

func TestClassifyFileHint(t *testing.T) {
	q := classifyOK(t, "quantas linhas tem o alunos.csv?")
	assert.Equal(t, "alunos.csv", q.FileHint)

	q = classifyOK(t, "quantos caracteres tem o documento?")
	assert.Empty(t, q.FileHint)
}

func TestClassifyNonExactQuestions(t *testing.T) {
	for _, question := range []string{
		"",
		"resuma o documento",
		"o que você acha do contrato?",
		"bom dia",
	} {
		_, ok := Classify(question)
		assert.False(t, ok, "did not expect %q to classify", question)
	}
}

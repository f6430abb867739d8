package intent

import (
	"regexp"
	"strings"
)

// RuleTableVersion identifies the classification table. Bump it whenever a
// rule's cue set or priority changes so behavior shifts are traceable.
const RuleTableVersion = 1

// rule maps phrase cues to a classified query. Rules are evaluated in table
// order; the first match wins.
type rule struct {
	name  string
	match func(q string) (*Query, bool)
}

var (
	quotedRE    = regexp.MustCompile(`["'“”]([^"'“”]+)["'“”]`)
	fileTokenRE = regexp.MustCompile(`(?i)\b[\wÀ-ÿ.\-]+\.(pdf|csv|xlsx|xls|txt)\b`)
	listAllRE   = regexp.MustCompile(`(?i)\b(?:liste?|listar|mostre|quais\s+s[ãa]o)\s+(?:todos?\s+|todas?\s+)?(?:os\s+|as\s+)?([\wÀ-ÿ]+)`)
	countNounRE = regexp.MustCompile(`(?i)\bquant[oa]s\s+([\wÀ-ÿ]+)`)
)

// punctuation cue words and the literal they count.
var punctNames = map[string]string{
	"interrogação":           "?",
	"interrogacao":           "?",
	"pontos de interrogação": "?",
	"exclamação":             "!",
	"exclamacao":             "!",
	"vírgula":                ",",
	"virgula":                ",",
	"ponto e vírgula":        ";",
	"ponto e virgula":        ";",
}

// nouns claimed by higher-value rules; the generic record-count rule must
// not swallow them.
var recordCountExclusions = map[string]bool{
	"parcelas": true, "parcela": true,
	"caracteres": true, "letras": true,
	"palavras": true,
	"linhas":   true, "colunas": true,
	"vezes": true, "pontos": true,
	"vírgulas": true, "virgulas": true,
	"interrogações": true, "interrogacoes": true,
	"exclamações": true, "exclamacoes": true,
}

// ruleTable is the fixed, priority-ordered classification table (v1):
//  1. punctuation count (named symbol or quoted literal)
//  2. character count
//  3. word count
//  4. tabular stats (rows, columns, column names)
//  5. exact-field extraction (identity, date, currency, installment)
//  6. record count (generic "quantos X")
//  7. occurrence count / listing of a quoted needle
//  8. generic "list all X"
var ruleTable = []rule{
	{name: "punct-count", match: matchPunctCount},
	{name: "char-count", match: matchCharCount},
	{name: "word-count", match: matchWordCount},
	{name: "table-stats", match: matchTableStats},
	{name: "field-extract", match: matchFieldExtract},
	{name: "record-count", match: matchRecordCount},
	{name: "needle", match: matchNeedle},
	{name: "list-all", match: matchListAll},
}

func matchPunctCount(q string) (*Query, bool) {
	if !strings.Contains(q, "quant") {
		return nil, false
	}
	for name, symbol := range punctNames {
		if strings.Contains(q, name) {
			return &Query{Action: ActionCount, Target: TargetPunct, Needle: symbol}, true
		}
	}
	// "quantos '?' existem" with a quoted single symbol.
	if m := quotedRE.FindStringSubmatch(q); m != nil && len([]rune(m[1])) == 1 {
		return &Query{Action: ActionCount, Target: TargetPunct, Needle: m[1]}, true
	}
	return nil, false
}

func matchCharCount(q string) (*Query, bool) {
	if strings.Contains(q, "quant") && (strings.Contains(q, "caracter") || strings.Contains(q, "letras")) {
		return &Query{Action: ActionCount, Target: TargetChars}, true
	}
	return nil, false
}

func matchWordCount(q string) (*Query, bool) {
	if strings.Contains(q, "quant") && strings.Contains(q, "palavra") {
		return &Query{Action: ActionCount, Target: TargetWords}, true
	}
	return nil, false
}

func matchTableStats(q string) (*Query, bool) {
	switch {
	case strings.Contains(q, "quantas linhas") || strings.Contains(q, "quantos registros tem a tabela"):
		return &Query{Action: ActionStats, Target: TargetRows}, true
	case strings.Contains(q, "quantas colunas"):
		return &Query{Action: ActionStats, Target: TargetCols}, true
	case strings.Contains(q, "quais colunas") || strings.Contains(q, "quais são as colunas") ||
		strings.Contains(q, "quais sao as colunas") || strings.Contains(q, "nomes das colunas"):
		return &Query{Action: ActionStats, Target: TargetColumns}, true
	}
	return nil, false
}

func matchFieldExtract(q string) (*Query, bool) {
	switch {
	case strings.Contains(q, "cpf") || strings.Contains(q, "cnpj"):
		return &Query{Action: ActionExtract, Field: FieldIdentity}, true
	case strings.Contains(q, "qual a data") || strings.Contains(q, "data de venciment") ||
		strings.Contains(q, "qual o venciment") || strings.Contains(q, "data do pagamento"):
		return &Query{Action: ActionExtract, Field: FieldDate}, true
	case strings.Contains(q, "qual o valor") || strings.Contains(q, "qual é o valor") ||
		strings.Contains(q, "qual e o valor") || strings.Contains(q, "valor total"):
		return &Query{Action: ActionExtract, Field: FieldCurrency}, true
	case strings.Contains(q, "parcela"):
		return &Query{Action: ActionExtract, Field: FieldInstallment}, true
	case strings.Contains(q, "qual o número") || strings.Contains(q, "qual o numero"):
		return &Query{Action: ActionExtract, Field: FieldAny}, true
	}
	return nil, false
}

func matchRecordCount(q string) (*Query, bool) {
	m := countNounRE.FindStringSubmatch(q)
	if m == nil {
		return nil, false
	}
	noun := strings.ToLower(m[1])
	if recordCountExclusions[noun] {
		return nil, false
	}
	return &Query{Action: ActionCount, Target: TargetRecords, Needle: noun}, true
}

func matchNeedle(q string) (*Query, bool) {
	m := quotedRE.FindStringSubmatch(q)
	if m == nil {
		return nil, false
	}
	needle := strings.TrimSpace(m[1])
	if needle == "" {
		return nil, false
	}
	if strings.Contains(q, "quant") || strings.Contains(q, "vezes") ||
		strings.Contains(q, "aparece") || strings.Contains(q, "ocorre") {
		return &Query{Action: ActionCount, Target: TargetNeedle, Needle: needle}, true
	}
	if strings.Contains(q, "onde") || strings.Contains(q, "liste") ||
		strings.Contains(q, "mostre") || strings.Contains(q, "trechos") {
		return &Query{Action: ActionList, Target: TargetNeedle, Needle: needle}, true
	}
	return nil, false
}

func matchListAll(q string) (*Query, bool) {
	m := listAllRE.FindStringSubmatch(q)
	if m == nil {
		return nil, false
	}
	noun := strings.ToLower(m[1])
	if isNameNoun(noun) {
		return &Query{Action: ActionList, Target: TargetNames, Needle: noun}, true
	}
	return &Query{Action: ActionList, Target: TargetGeneric, Needle: noun}, true
}

// columnSynonyms maps listing nouns to tabular columns that can satisfy
// them with a structured lookup.
var columnSynonyms = map[string][]string{
	"nomes":         {"nome", "name", "aluno", "cliente", "usuario", "usuário", "participante", "funcionario", "funcionário"},
	"nome":          {"nome", "name"},
	"alunos":        {"aluno", "alunos", "nome", "name"},
	"clientes":      {"cliente", "clientes", "nome", "name"},
	"participantes": {"participante", "participantes", "nome", "name"},
	"funcionarios":  {"funcionario", "funcionário", "nome", "name"},
	"funcionários":  {"funcionario", "funcionário", "nome", "name"},
	"usuarios":      {"usuario", "usuário", "nome", "name"},
	"usuários":      {"usuario", "usuário", "nome", "name"},
	"emails":        {"email", "e-mail"},
	"valores":       {"valor", "value", "preco", "preço"},
}

func isNameNoun(noun string) bool {
	_, ok := columnSynonyms[noun]
	return ok
}

// parseFileHint pulls a filename or id mention from the question: a quoted
// token first, then any token with a known document extension.
func parseFileHint(original string) string {
	if m := quotedRE.FindStringSubmatch(original); m != nil {
		if fileTokenRE.MatchString(m[1]) {
			return strings.TrimSpace(m[1])
		}
	}
	if m := fileTokenRE.FindString(original); m != "" {
		return m
	}
	return ""
}

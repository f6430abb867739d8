package orchestrator

import (
	"fmt"
	"strings"

	"github.com/paytechai/docquery/internal/planner"
)

// documentAnalystPrompt pins the model to the supplied context. The closing
// sentence must stay byte-identical to the deterministic engine's sentinel so
// downstream consumers can detect a no-evidence answer either way.
const documentAnalystPrompt = "Você é um analisador técnico de documentos.\n" +
	"Sua única fonte de verdade é o CONTEXTO fornecido.\n" +
	"\nREGRAS (OBRIGATÓRIAS):\n" +
	"- NÃO assumir, inferir ou sugerir informações externas.\n" +
	"- NÃO responder com conselhos genéricos.\n" +
	"- NUNCA sugerir consultar aplicativo, banco ou outra fonte externa.\n" +
	"- PROIBIDO usar frases como:\n" +
	"  - 'Você pode verificar...'\n" +
	"  - 'Recomendo consultar...'\n" +
	"  - 'Caso contrário...'\n" +
	"  - 'Se precisar...'\n" +
	"- Se a informação existir no CONTEXTO, responda com precisão absoluta.\n" +
	"- Se a informação NÃO estiver explicitamente no CONTEXTO, responda apenas:\n" +
	"  'Essa informação não consta no documento analisado.'\n" +
	"\nPRECISÃO:\n" +
	"- Para perguntas como 'qual o valor', 'qual a data', 'quantas parcelas', 'qual o número':\n" +
	"  localize explicitamente no CONTEXTO e devolva exatamente como está no documento.\n" +
	"\nCONTEXTO:\n"

const noContextPrompt = "Você é um analisador técnico de documentos.\n" +
	"Sua única fonte de verdade é o CONTEXTO fornecido.\n" +
	"Se a informação não estiver explicitamente no CONTEXTO, responda apenas:\n" +
	"'Essa informação não consta no documento analisado.'"

const citePrompt = "Se usar evidências, inclua uma seção final 'Fontes' com os itens citados."

// contextBlock renders numbered excerpts the analyst prompt refers to.
type contextBlock struct {
	Filename string
	Text     string
}

func analystPrompt(blocks []contextBlock) string {
	if len(blocks) == 0 {
		return noContextPrompt
	}
	var b strings.Builder
	b.WriteString(documentAnalystPrompt)
	for i, blk := range blocks {
		fmt.Fprintf(&b, "\n[Trecho %d] (Fonte: %s)\n%s\n", i+1, blk.Filename, blk.Text)
	}
	return b.String()
}

// evidenceBlock renders the retrieved sources for the general answer path.
func evidenceBlock(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	lines := []string{"Evidências (documentos do usuário):"}
	for i, s := range sources {
		var meta []string
		if s.Page > 0 {
			meta = append(meta, fmt.Sprintf("p.%d", s.Page))
		}
		if s.Sheet != "" {
			meta = append(meta, "aba "+s.Sheet)
		}
		metaTxt := ""
		if len(meta) > 0 {
			metaTxt = " (" + strings.Join(meta, ", ") + ")"
		}
		lines = append(lines, fmt.Sprintf("[%d] %s%s\n%s", i+1, s.Filename, metaTxt, strings.TrimSpace(s.Snippet)))
	}
	return strings.Join(lines, "\n\n")
}

func modePrompt(mode string) string {
	switch mode {
	case planner.ModeDidatico:
		return "Modo de resposta: DIDÁTICO. Explique com clareza, com passos e exemplos curtos."
	case planner.ModeExecutivo:
		return "Modo de resposta: EXECUTIVO. Resuma, destaque decisões e próximos passos."
	case planner.ModeTecnico:
		return "Modo de resposta: TÉCNICO. Seja preciso e detalhado no que importa."
	default:
		return "Modo de resposta: NORMAL. Seja claro e direto."
	}
}

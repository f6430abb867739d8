package orchestrator

import (
	"strings"

	"github.com/paytechai/docquery/internal/planner"
)

const emptyAnswerFallback = "Não consegui gerar uma resposta agora. Pode repetir a pergunta com um pouco mais de contexto?"

const missingSourcesSuffix = "\n\nFontes: não encontrei evidências nos documentos para sustentar uma citação."

// verifyAnswer returns the final answer text and any warnings. It only ever
// replaces an empty answer or appends to a streamed one: emitted deltas are a
// prefix of the result, never retracted.
func verifyAnswer(plan planner.Plan, answer string, sources []Source) (string, []string) {
	var warnings []string
	text := strings.TrimSpace(answer)

	if text == "" {
		warnings = append(warnings, "empty_answer")
		text = emptyAnswerFallback
	}

	if plan.MustCiteSources && len(sources) == 0 {
		warnings = append(warnings, "missing_sources")
		text += missingSourcesSuffix
	}

	return strings.TrimSpace(text), warnings
}

// appendSuffix computes the delta still to emit after verification. When the
// verified text does not extend the streamed text, the correction is attached
// as a trailing block rather than rewinding.
func appendSuffix(streamed, verified string) string {
	if verified == streamed {
		return ""
	}
	if strings.HasPrefix(verified, streamed) {
		return verified[len(streamed):]
	}
	return "\n\n" + verified
}

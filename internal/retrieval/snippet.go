package retrieval

import "strings"

// DefaultSnippetLen caps evidence snippets shown to users and models.
const DefaultSnippetLen = 360

// Snippet cuts a window of text around the earliest term occurrence. With no
// terms or no match it returns the text prefix. Ellipses mark trimmed ends.
func Snippet(text string, terms []string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLen
	}
	s := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(terms) == 0 {
		return string(runes[:min(len(runes), maxLen)])
	}

	low := strings.ToLower(s)
	lowRunes := []rune(low)
	idx := -1
	hitLen := 0
	for _, term := range terms {
		i := runeIndex(lowRunes, strings.ToLower(term))
		if i != -1 && (idx == -1 || i < idx) {
			idx = i
			hitLen = len([]rune(term))
		}
	}
	if idx == -1 {
		return string(runes[:min(len(runes), maxLen)])
	}

	half := max(80, maxLen/2)
	start := max(0, idx-half)
	end := min(len(runes), idx+hitLen+half)

	prefix := ""
	if start > 0 {
		prefix = "…"
	}
	suffix := ""
	if end < len(runes) {
		suffix = "…"
	}

	out := prefix + strings.TrimSpace(string(runes[start:end])) + suffix
	outRunes := []rune(out)
	return string(outRunes[:min(len(outRunes), maxLen+2)])
}

// KeywordScore scores text for a filename-aware keyword search: capped term
// frequency plus a bonus for terms appearing in the filename, normalized by
// length. Used when a corpus has no embeddings at all.
func KeywordScore(text, filename string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	low := strings.ToLower(text)
	fn := strings.ToLower(filename)

	score := 0.0
	for _, term := range terms {
		if term == "" {
			continue
		}
		score += min(10.0, float64(strings.Count(low, term)))
		if strings.Contains(fn, term) {
			score += 2.0
		}
	}
	return score * (800.0 / max(200.0, float64(len(low))))
}

// runeIndex finds the rune offset of substr in the rune slice's string form.
func runeIndex(runes []rune, substr string) int {
	i := strings.Index(string(runes), substr)
	if i == -1 {
		return -1
	}
	return len([]rune(string(runes)[:i]))
}

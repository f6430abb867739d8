package intent

import (
	"regexp"
	"strings"
)

// Pattern families for exact-field extraction. Families are scanned in a
// fixed priority (identity, date, currency, installment) and the first hit
// wins. Answers return the containing line so they stay auditable.
var (
	identityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),      // CPF
		regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`), // CNPJ
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
		regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	}
	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`R\$\s*\d{1,3}(?:\.\d{3})*,\d{2}`),
	}
	installmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,2}\s*[x]\s*(?:de\s*)?R\$\s*\d{1,3}(?:\.\d{3})*,\d{2}`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s*parcelas?\b`),
		regexp.MustCompile(`(?i)\bparcela\s*\d{1,2}\s*/\s*\d{1,2}\b`),
	}
)

// fieldFamilies indexes the pattern families in scan priority order.
var fieldFamilies = []struct {
	field    Field
	patterns []*regexp.Regexp
}{
	{FieldIdentity, identityPatterns},
	{FieldDate, datePatterns},
	{FieldCurrency, currencyPatterns},
	{FieldInstallment, installmentPatterns},
}

// CountSubstring counts non-overlapping occurrences, case-insensitive by
// default.
func CountSubstring(text, substring string, caseInsensitive bool) int {
	if text == "" || substring == "" {
		return 0
	}
	if caseInsensitive {
		return strings.Count(strings.ToLower(text), strings.ToLower(substring))
	}
	return strings.Count(text, substring)
}

// extractFirstLine scans the family's patterns and returns the line
// containing the first match.
func extractFirstLine(text string, field Field) (string, bool) {
	for _, family := range fieldFamilies {
		if field != FieldAny && family.field != field {
			continue
		}
		for _, re := range family.patterns {
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			return containingLine(text, loc[0]), true
		}
	}
	return "", false
}

// containingLine returns the full line around byte offset pos.
func containingLine(text string, pos int) string {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	end := strings.IndexByte(text[pos:], '\n')
	if end == -1 {
		end = len(text)
	} else {
		end += pos
	}
	return strings.TrimSpace(text[start:end])
}

// FindLinesWithKeyword returns dedup'd blocks of the matching line with a
// window of surrounding lines, capped at maxHits.
func FindLinesWithKeyword(text, keyword string, window, maxHits int) []string {
	kw := strings.TrimSpace(keyword)
	if text == "" || kw == "" {
		return nil
	}
	if window < 0 {
		window = 0
	}
	if maxHits <= 0 {
		maxHits = 80
	}

	needle := strings.ToLower(kw)
	lines := strings.Split(text, "\n")
	seen := make(map[string]bool)
	var out []string

	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		a := max(0, i-window)
		b := min(len(lines), i+window+1)
		block := strings.TrimSpace(strings.Join(lines[a:b], "\n"))
		if block == "" || seen[block] {
			continue
		}
		seen[block] = true
		out = append(out, block)
		if len(out) >= maxHits {
			break
		}
	}
	return out
}

// markerPatterns are list-item heuristics for counting records in plain
// text. The pattern with the most matches wins.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*[-•*]\s+\S`),
	regexp.MustCompile(`(?m)^\s*\d+[.)]\s+\S`),
	regexp.MustCompile(`(?m)^\s*item\s+\d+`),
}

// bestMarkerCount counts list-like records in raw text.
func bestMarkerCount(text string) int {
	best := 0
	for _, re := range markerPatterns {
		if n := len(re.FindAllStringIndex(text, -1)); n > best {
			best = n
		}
	}
	return best
}

package intent

import "strings"

// Classify runs the question through the rule table and returns the first
// matching query, or false when the question is not an exact computation.
func Classify(question string) (*Query, bool) {
	original := strings.TrimSpace(question)
	if original == "" {
		return nil, false
	}
	q := strings.ToLower(original)

	for _, r := range ruleTable {
		query, ok := r.match(q)
		if !ok {
			continue
		}
		query.FileHint = parseFileHint(original)
		return query, true
	}
	return nil, false
}

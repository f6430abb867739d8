package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Explicit compute operations exposed on the deterministic endpoint.
const (
	OpCountChar    = "count_char"
	OpCountRegex   = "count_regex"
	OpFindAll      = "find_all"
	OpExtractLines = "extract_lines"
)

const (
	defaultFindAllHits    = 50
	defaultFindAllContext = 80
	defaultExtractLines   = 200
)

// ErrInvalidArgument marks caller-supplied compute input that cannot be
// executed. Handlers map it to a 4xx response.
var ErrInvalidArgument = errors.New("invalid compute argument")

// ComputeFlags tune a compute operation.
type ComputeFlags struct {
	CaseInsensitive bool `json:"case_insensitive"`
	Regex           bool `json:"regex"`
	MaxHits         int  `json:"max_hits"`
	Context         int  `json:"context"`
	MaxLines        int  `json:"max_lines"`
}

// Match is one find_all occurrence with surrounding context.
type Match struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"match"`
	Context string `json:"context"`
}

// ComputeResult carries the operation output plus metadata.
type ComputeResult struct {
	Op     string         `json:"op"`
	Result any            `json:"result"`
	Meta   map[string]any `json:"meta"`
}

// Compute runs one explicit deterministic operation over text.
func Compute(text, op, arg string, flags ComputeFlags) (ComputeResult, error) {
	meta := map[string]any{"len": len(text)}

	switch op {
	case OpCountChar:
		ch := ""
		if arg != "" {
			ch = string([]rune(arg)[0])
		}
		n := 0
		if ch != "" {
			n = strings.Count(text, ch)
		}
		return ComputeResult{Op: op, Result: n, Meta: meta}, nil

	case OpCountRegex:
		re, err := compileArg(arg, flags)
		if err != nil {
			return ComputeResult{}, err
		}
		return ComputeResult{Op: op, Result: len(re.FindAllStringIndex(text, -1)), Meta: meta}, nil

	case OpFindAll:
		matches, err := findAll(text, arg, flags)
		if err != nil {
			return ComputeResult{}, err
		}
		return ComputeResult{Op: op, Result: matches, Meta: meta}, nil

	case OpExtractLines:
		maxLines := flags.MaxLines
		if maxLines <= 0 {
			maxLines = defaultExtractLines
		}
		lines := strings.Split(text, "\n")
		meta["lines"] = len(lines)
		var out []string
		needle := arg
		if flags.CaseInsensitive {
			needle = strings.ToLower(needle)
		}
		for _, line := range lines {
			hay := line
			if flags.CaseInsensitive {
				hay = strings.ToLower(hay)
			}
			if needle != "" && strings.Contains(hay, needle) {
				out = append(out, line)
				if len(out) >= maxLines {
					break
				}
			}
		}
		return ComputeResult{Op: op, Result: out, Meta: meta}, nil
	}

	return ComputeResult{}, fmt.Errorf("%w: unsupported op %q", ErrInvalidArgument, op)
}

func compileArg(arg string, flags ComputeFlags) (*regexp.Regexp, error) {
	pattern := arg
	if flags.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return re, nil
}

func findAll(text, arg string, flags ComputeFlags) ([]Match, error) {
	maxHits := flags.MaxHits
	if maxHits <= 0 {
		maxHits = defaultFindAllHits
	}
	ctx := flags.Context
	if ctx <= 0 {
		ctx = defaultFindAllContext
	}

	var out []Match
	if flags.Regex {
		re, err := compileArg(arg, flags)
		if err != nil {
			return nil, err
		}
		for _, loc := range re.FindAllStringIndex(text, maxHits) {
			start := max(0, loc[0]-ctx)
			end := min(len(text), loc[1]+ctx)
			out = append(out, Match{
				Start:   loc[0],
				End:     loc[1],
				Text:    text[loc[0]:loc[1]],
				Context: text[start:end],
			})
		}
		return out, nil
	}

	if arg == "" {
		return nil, nil
	}
	hay, needle := text, arg
	if flags.CaseInsensitive {
		hay = strings.ToLower(text)
		needle = strings.ToLower(arg)
	}
	i := 0
	for len(out) < maxHits {
		j := strings.Index(hay[i:], needle)
		if j < 0 {
			break
		}
		j += i
		start := max(0, j-ctx)
		end := min(len(text), j+len(needle)+ctx)
		out = append(out, Match{
			Start:   j,
			End:     j + len(needle),
			Text:    text[j : j+len(needle)],
			Context: text[start:end],
		})
		i = j + max(1, len(needle))
	}
	return out, nil
}

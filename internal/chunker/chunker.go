// Package chunker splits extracted document text into overlapping windows
// sized in tokens, with a character-based fallback when no tokenizer is
// available.
package chunker

import (
	"log/slog"
	"regexp"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultChunkTokens is the window size when none is configured.
	DefaultChunkTokens = 700
	// DefaultOverlapTokens is the window overlap when none is configured.
	DefaultOverlapTokens = 80

	minChunkTokens = 50
	minChunkChars  = 300
	// charsPerToken approximates token length for the fallback path.
	charsPerToken = 4

	encodingName = "cl100k_base"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Chunker produces fixed-size overlapping text windows.
type Chunker struct {
	chunkTokens   int
	overlapTokens int
	encoder       *tiktoken.Tiktoken
}

// New creates a Chunker with the given window and overlap sizes in tokens.
// Windows smaller than 50 tokens are raised to 50. If the tokenizer cannot
// be loaded, the chunker degrades to character windows.
func New(chunkTokens, overlapTokens int) *Chunker {
	if chunkTokens <= 0 {
		chunkTokens = DefaultChunkTokens
	}
	if chunkTokens < minChunkTokens {
		chunkTokens = minChunkTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= chunkTokens {
		overlapTokens = chunkTokens / 2
	}

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		slog.Warn("tokenizer unavailable, falling back to character windows", "error", err)
		encoder = nil
	}

	return &Chunker{
		chunkTokens:   chunkTokens,
		overlapTokens: overlapTokens,
		encoder:       encoder,
	}
}

// Split breaks text into overlapping windows. Consecutive windows share
// the configured overlap; the last window may be shorter. Empty input
// yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	if c.encoder == nil {
		return c.splitChars(text)
	}

	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		end := start + c.chunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.encoder.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
		start = end - c.overlapTokens
	}
	return chunks
}

// splitChars is the tokenizer-free fallback. Whitespace runs collapse to a
// single space before the text is windowed by character count.
func (c *Chunker) splitChars(text string) []string {
	normalized := whitespaceRE.ReplaceAllString(text, " ")
	runes := []rune(normalized)
	if len(runes) == 0 {
		return nil
	}

	window := c.chunkTokens * charsPerToken
	if window < minChunkChars {
		window = minChunkChars
	}
	overlap := c.overlapTokens * charsPerToken
	if overlap >= window {
		overlap = window / 2
	}

	var chunks []string
	start := 0
	for {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

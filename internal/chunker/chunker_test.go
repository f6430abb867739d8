package chunker

import (
	"strings"
	"testing"
)

// TestSplit_Empty tests that empty input yields no chunks.
func TestSplit_Empty(t *testing.T) {
	c := New(100, 10)
	if chunks := c.Split(""); len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

// TestSplit_ShortText tests that text under one window stays whole.
func TestSplit_ShortText(t *testing.T) {
	c := New(100, 10)
	chunks := c.Split("um texto curto")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "um texto curto" {
		t.Errorf("Short text should survive unchanged, got %q", chunks[0])
	}
}

// TestSplit_WindowsOverlap tests that long text produces multiple chunks
// with shared content between neighbors.
func TestSplit_WindowsOverlap(t *testing.T) {
	c := New(50, 10)

	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("palavra ")
	}
	text := strings.TrimSpace(b.String())

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// Every chunk must be a substring of the original.
	for i, chunk := range chunks {
		if !strings.Contains(text, strings.TrimSpace(chunk)) {
			t.Errorf("Chunk %d is not a substring of the input", i)
		}
	}

	// Overlap: the tail of each chunk reappears at the head of the next.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-8:]
		if !strings.Contains(chunks[i+1], strings.TrimSpace(tail)) {
			t.Errorf("Chunk %d tail %q missing from chunk %d", i, tail, i+1)
		}
	}
}

// TestSplit_MinimumWindow tests that tiny window sizes are raised to the floor.
func TestSplit_MinimumWindow(t *testing.T) {
	c := New(5, 2)
	if c.chunkTokens != minChunkTokens {
		t.Errorf("Expected window raised to %d, got %d", minChunkTokens, c.chunkTokens)
	}
}

// TestSplitChars_NormalizesWhitespace tests the character fallback path.
func TestSplitChars_NormalizesWhitespace(t *testing.T) {
	c := &Chunker{chunkTokens: 100, overlapTokens: 10}

	chunks := c.splitChars("linha um\n\n\tlinha   dois")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "linha um linha dois" {
		t.Errorf("Whitespace not normalized: %q", chunks[0])
	}
}

// TestSplitChars_Windows tests character windowing with overlap on a
// tokenizer-free chunker.
func TestSplitChars_Windows(t *testing.T) {
	c := &Chunker{chunkTokens: 100, overlapTokens: 10}
	// Window = 400 chars, overlap = 40 chars.
	text := strings.Repeat("abcdefghij", 100) // 1000 chars

	chunks := c.splitChars(text)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 400 {
		t.Errorf("Chunk 0 length: expected 400, got %d", len(chunks[0]))
	}
	// Second chunk starts 40 chars before the first ends.
	if chunks[1][:40] != chunks[0][360:] {
		t.Errorf("Chunk 1 does not overlap chunk 0")
	}
	// Last chunk reaches the end of the text.
	if !strings.HasSuffix(text, chunks[2]) {
		t.Errorf("Last chunk does not end the text")
	}
}

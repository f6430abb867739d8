// Package retrieval implements hybrid search over a tenant's chunks:
// cosine-similarity semantic search plus a lightweight lexical scorer, fused
// lexical-first with per-chunk dedup.
package retrieval

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/paytechai/docquery/internal/embedding"
	"github.com/paytechai/docquery/internal/store"
)

const (
	// DefaultTopK is the per-list result count when none is configured.
	DefaultTopK = 6

	// maxQueryTerms keeps long questions from over-penalizing chunks that
	// only match the meaningful words.
	maxQueryTerms = 10

	lexicalWeight  = 1.0
	semanticWeight = 0.8
)

var termRE = regexp.MustCompile(`[\wÀ-ÿ]{2,}`)

// Hit is one retrieved chunk with its list-local score.
type Hit struct {
	ChunkID  string
	DocID    string
	Filename string
	Ext      string
	Score    float64
	Text     string
	Page     int
	Sheet    string
}

// Retriever runs semantic and lexical search over one chunk store.
// A nil embedder degrades every query to lexical-only.
type Retriever struct {
	chunks   store.ChunkStore
	embedder *embedding.Embedder
	logger   *slog.Logger
}

func New(chunks store.ChunkStore, embedder *embedding.Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{chunks: chunks, embedder: embedder, logger: logger}
}

// Semantic embeds the query and returns the top k chunks by cosine
// similarity, highest first. Embedding failures degrade to an empty result.
func (r *Retriever) Semantic(ctx context.Context, tenantID, query string, k int) []Hit {
	query = strings.TrimSpace(query)
	if query == "" || r.embedder == nil {
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("Query embedding failed, semantic search skipped", "error", err)
		return nil
	}

	scored, err := r.chunks.SearchByVector(ctx, tenantID, vector, k)
	if err != nil {
		r.logger.Warn("Vector search failed", "error", err)
		return nil
	}

	hits := make([]Hit, 0, len(scored))
	for _, sc := range scored {
		hits = append(hits, hitFromChunk(sc.Chunk, sc.Score))
	}
	return hits
}

// Lexical scans all of the tenant's chunks and scores them by term
// frequency, distinct-term coverage, and a density bonus for terms that
// appear close together. Chunks matching no term are excluded.
func (r *Retriever) Lexical(ctx context.Context, tenantID, query string, k int) []Hit {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	chunks, err := r.chunks.ScrollByTenant(ctx, tenantID)
	if err != nil {
		r.logger.Warn("Lexical scan failed", "error", err)
		return nil
	}

	var hits []Hit
	for _, c := range chunks {
		score := lexicalScore(c.Text, terms)
		if score <= 0 {
			continue
		}
		hits = append(hits, hitFromChunk(c, score))
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Retrieve runs both searches and fuses the results.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string, k int) []Hit {
	if k <= 0 {
		k = DefaultTopK
	}
	lex := r.Lexical(ctx, tenantID, query, k)
	sem := r.Semantic(ctx, tenantID, query, k)
	return Fuse(lex, sem, k)
}

// BestDocument picks the document most supported by both ranked lists.
// Each document earns (listLength−rank)×weight per list, lexical weighing
// 1.0 and semantic 0.8. Ties break toward the lowest document id.
func (r *Retriever) BestDocument(ctx context.Context, tenantID, query string, k int) (string, bool) {
	if k <= 0 {
		k = DefaultTopK
	}
	lex := r.Lexical(ctx, tenantID, query, k)
	sem := r.Semantic(ctx, tenantID, query, k)
	return BestDocument(lex, sem)
}

// Fuse concatenates lexical hits first, then semantic, dropping duplicate
// chunks and capping at limit.
func Fuse(lexical, semantic []Hit, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultTopK
	}

	seen := make(map[string]bool)
	var out []Hit
	for _, h := range append(append([]Hit{}, lexical...), semantic...) {
		key := h.ChunkID
		if key == "" {
			text := h.Text
			if len(text) > 64 {
				text = text[:64]
			}
			key = h.Filename + "\x00" + text
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}

// BestDocument scores documents across both ranked lists.
func BestDocument(lexical, semantic []Hit) (string, bool) {
	points := make(map[string]float64)
	accumulate := func(hits []Hit, weight float64) {
		for rank, h := range hits {
			if h.DocID == "" {
				continue
			}
			points[h.DocID] += float64(len(hits)-rank) * weight
		}
	}
	accumulate(lexical, lexicalWeight)
	accumulate(semantic, semanticWeight)

	best := ""
	bestPoints := 0.0
	for docID, p := range points {
		if p > bestPoints || (p == bestPoints && (best == "" || docID < best)) {
			best = docID
			bestPoints = p
		}
	}
	return best, best != ""
}

// QueryTerms lowercases the query and keeps up to 10 distinct terms of two
// or more word characters, in order of first appearance.
func QueryTerms(query string) []string {
	terms := termRE.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool)
	var out []string
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxQueryTerms {
			break
		}
	}
	return out
}

// lexicalScore combines term frequency, distinct-term coverage, a density
// bonus for terms clustered together, and a mild length normalization.
func lexicalScore(text string, terms []string) float64 {
	low := strings.ToLower(text)

	tf := 0
	hits := 0
	firstPos, lastPos := -1, -1
	for _, term := range terms {
		c := strings.Count(low, term)
		if c <= 0 {
			continue
		}
		hits++
		tf += c
		p := strings.Index(low, term)
		if firstPos == -1 || p < firstPos {
			firstPos = p
		}
		if end := p + len(term); end > lastPos {
			lastPos = end
		}
	}
	if tf <= 0 {
		return 0
	}

	score := float64(tf) + 2.0*float64(hits-1)
	if firstPos >= 0 && lastPos > firstPos {
		span := lastPos - firstPos
		if span < 1 {
			span = 1
		}
		score += 6.0 * (1.0 / float64(span)) * 100.0
	}
	score *= 800.0 / max(200.0, float64(len(low)))
	return score
}

func hitFromChunk(c store.Chunk, score float64) Hit {
	return Hit{
		ChunkID:  c.ID,
		DocID:    c.DocID,
		Filename: c.Filename,
		Ext:      c.Ext,
		Score:    score,
		Text:     c.Text,
		Page:     c.Page,
		Sheet:    c.Sheet,
	}
}

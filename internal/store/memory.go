package store

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryChunks is an in-memory ChunkStore used by tests and by deployments
// without a Qdrant instance. Vector search runs a brute-force cosine scan.
type MemoryChunks struct {
	mu     sync.RWMutex
	chunks []Chunk
}

func NewMemoryChunks() *MemoryChunks {
	return &MemoryChunks{}
}

func (m *MemoryChunks) UpsertChunks(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		replaced := false
		for i := range m.chunks {
			if m.chunks[i].ID == c.ID {
				m.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			m.chunks = append(m.chunks, c)
		}
	}
	return nil
}

func (m *MemoryChunks) SearchByVector(_ context.Context, tenantID string, vector []float32, limit int) ([]ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scored []ScoredChunk
	for _, c := range m.chunks {
		if c.TenantID != tenantID || c.Embedding == nil {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: cosine(vector, c.Embedding)})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (m *MemoryChunks) ScrollByTenant(_ context.Context, tenantID string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Chunk
	for _, c := range m.chunks {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryChunks) ScrollByDoc(_ context.Context, tenantID, docID string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Chunk
	for _, c := range m.chunks {
		if c.TenantID == tenantID && c.DocID == docID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *MemoryChunks) DeleteByDoc(_ context.Context, tenantID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.TenantID == tenantID && c.DocID == docID {
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

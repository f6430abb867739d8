package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

const (
	// CollectionName is the Qdrant collection holding all tenants' chunks.
	CollectionName = "docquery_chunks"

	// vectorName is the named vector slot for chunk embeddings. Chunks
	// indexed without embeddings carry an empty vector map and are served
	// to lexical scans only.
	vectorName = "content"
)

// QdrantChunks stores chunks in Qdrant with connection management and
// health checks.
type QdrantChunks struct {
	client    *qdrant.Client
	host      string
	port      int
	dimension uint64
}

// NewQdrantChunks creates a Qdrant-backed chunk store. It performs a health
// check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantChunks(host string, port int, dimension int) (*QdrantChunks, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantChunks{
		client:    client,
		host:      host,
		port:      port,
		dimension: uint64(dimension),
	}

	ctx := context.Background()
	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantChunks) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantChunks) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection ensures the chunks collection exists with cosine vectors
// and payload indexes on the filterable fields. Idempotent.
func (s *QdrantChunks) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     s.dimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes creates indexes for the fields every query filters on.
func (s *QdrantChunks) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"tenant_id",
		"doc_id",
		"ext",
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantChunks) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantChunks) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, exponentialBackoff)
}

// UpsertChunks stores chunks in batches of 100. Chunks with a nil Embedding
// are stored vectorless; chunks with a wrong-sized embedding are rejected.
func (s *QdrantChunks) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if chunk.Embedding != nil && uint64(len(chunk.Embedding)) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, chunk := range batch {
			vectors := map[string]*qdrant.Vector{}
			if chunk.Embedding != nil {
				vectors[vectorName] = qdrant.NewVector(chunk.Embedding...)
			}

			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectorsMap(vectors),
				Payload: qdrant.NewValueMap(map[string]any{
					"tenant_id":   chunk.TenantID,
					"doc_id":      chunk.DocID,
					"filename":    chunk.Filename,
					"ext":         chunk.Ext,
					"chunk_index": chunk.Index,
					"content":     chunk.Text,
					"page":        chunk.Page,
					"sheet":       chunk.Sheet,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchByVector performs cosine similarity search over one tenant's chunks.
// Results come back ordered by score descending with no similarity floor.
func (s *QdrantChunks) SearchByVector(ctx context.Context, tenantID string, vector []float32, limit int) ([]ScoredChunk, error) {
	if uint64(len(vector)) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("tenant_id", tenantID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredChunk{
			Chunk: chunkFromPayload(result.Id.GetUuid(), result.Payload),
			Score: float64(result.Score),
		})
	}

	return scored, nil
}

// ScrollByTenant returns all chunks of a tenant, paging through the
// collection in batches of 100.
func (s *QdrantChunks) ScrollByTenant(ctx context.Context, tenantID string) ([]Chunk, error) {
	return s.scroll(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("tenant_id", tenantID),
		},
	})
}

// ScrollByDoc returns one document's chunks sorted by chunk index.
func (s *QdrantChunks) ScrollByDoc(ctx context.Context, tenantID, docID string) ([]Chunk, error) {
	chunks, err := s.scroll(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("tenant_id", tenantID),
			qdrant.NewMatch("doc_id", docID),
		},
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func (s *QdrantChunks) scroll(ctx context.Context, filter *qdrant.Filter) ([]Chunk, error) {
	var chunks []Chunk
	var offset *qdrant.PointId

	batchSize := uint32(100)
	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, result := range results {
			chunks = append(chunks, chunkFromPayload(result.Id.GetUuid(), result.Payload))
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	return chunks, nil
}

// DeleteByDoc removes every chunk belonging to one document.
func (s *QdrantChunks) DeleteByDoc(ctx context.Context, tenantID, docID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("tenant_id", tenantID),
				qdrant.NewMatch("doc_id", docID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", docID, err)
	}
	return nil
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves the total points count, used by health and
// status reporting.
func (s *QdrantChunks) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) Chunk {
	return Chunk{
		ID:       id,
		DocID:    payload["doc_id"].GetStringValue(),
		TenantID: payload["tenant_id"].GetStringValue(),
		Filename: payload["filename"].GetStringValue(),
		Ext:      payload["ext"].GetStringValue(),
		Index:    int(payload["chunk_index"].GetIntegerValue()),
		Text:     payload["content"].GetStringValue(),
		Page:     int(payload["page"].GetIntegerValue()),
		Sheet:    payload["sheet"].GetStringValue(),
	}
}

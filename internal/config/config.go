// Package config gathers environment configuration for the docquery service.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all tunables read from the environment. Entry points load a
// .env file first (godotenv) and then build one Config passed down explicitly.
type Config struct {
	// Qdrant chunk store.
	QdrantHost string
	QdrantPort int

	// OpenAI models.
	ChatModel  string
	EmbedModel string

	// Embedding vector dimension. Every chunk in a deployment must share this
	// dimension; mixing dimensions breaks cosine scoring.
	EmbedDimension int

	// Chunking window, in tokens.
	ChunkTokens   int
	OverlapTokens int

	// Retrieval fan-out.
	TopK int

	// Data directory for full-text blobs, the catalog database and exports.
	DataDir string

	// HTTP listen port.
	Port string

	// Turn-level deadlines.
	PlannerTimeout time.Duration
	ToolsTimeout   time.Duration

	// Worker pool sizes.
	PlannerWorkers int
	ToolWorkers    int
}

// Load reads configuration from the environment, applying defaults that match
// a local single-node deployment.
func Load() Config {
	return Config{
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6334),
		ChatModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EmbedModel:     getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("EMBED_DIMENSION", 1536),
		ChunkTokens:    getEnvInt("CHUNK_TOKENS", 700),
		OverlapTokens:  getEnvInt("CHUNK_OVERLAP_TOKENS", 80),
		TopK:           getEnvInt("RETRIEVAL_TOP_K", 6),
		DataDir:        getEnv("DOCQUERY_DATA_DIR", "data"),
		Port:           getEnv("PORT", "8080"),
		PlannerTimeout: getEnvDuration("PLANNER_TIMEOUT", 4*time.Second),
		ToolsTimeout:   getEnvDuration("TOOLS_TIMEOUT", 8*time.Second),
		PlannerWorkers: getEnvInt("PLANNER_WORKERS", 4),
		ToolWorkers:    getEnvInt("TOOL_WORKERS", 4),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

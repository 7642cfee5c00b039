package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/docstack/ragsearch/internal/config"
	"github.com/docstack/ragsearch/internal/embedder"
	"github.com/docstack/ragsearch/internal/generation"
	"github.com/docstack/ragsearch/internal/ingestion"
	"github.com/docstack/ragsearch/internal/rag"
	"github.com/docstack/ragsearch/internal/store"
)

// buildEmbedder validates the embedding configuration and constructs the
// embedder from environment variables.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")),
	)
	return emb, nil
}

// buildIndex constructs the vector index from environment variables.
// RAGSEARCH_INDEX=memory selects the in-process index for local development;
// anything else connects to Qdrant. The returned close function releases the
// index; qdrant is non-nil only for the Qdrant backend (used for readiness
// probes).
func buildIndex(log *slog.Logger) (index rag.VectorIndex, qdrant *rag.QdrantIndex, err error) {
	if getEnvOrDefault("RAGSEARCH_INDEX", "qdrant") == "memory" {
		log.Warn("using in-memory vector index — data is lost on exit")
		return rag.NewMemoryIndex(), nil, nil
	}

	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")

	qi, err := rag.NewQdrantIndex(&rag.QdrantConfig{
		Host:       host,
		Port:       port,
		VectorSize: uint64(embedder.DefaultDimensions(backend)), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("vector index ready", slog.String("host", host), slog.Int("port", port))
	return qi, qi, nil
}

// buildGenerator constructs the generation client from environment variables.
func buildGenerator(log *slog.Logger) (*generation.Client, error) {
	gen, err := generation.NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	log.Info("generation client initialised", slog.String("model", gen.Model()))
	return gen, nil
}

// buildHistory opens the ingestion history store. RAGSEARCH_HISTORY_DB
// overrides the default path (~/.ragsearch/history.db); set it to "disabled"
// to skip history entirely. A broken history store is downgraded to a warning
// — ingestion must not fail because auditing is unavailable.
func buildHistory(log *slog.Logger) (store.HistoryStore, func()) {
	dbPath := os.Getenv("RAGSEARCH_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via RAGSEARCH_HISTORY_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// chunkingFromEnv resolves the chunking parameters for the ingestion pipeline.
func chunkingFromEnv() *ingestion.Config {
	return &ingestion.Config{
		ChunkSize:    getEnvInt("CHUNK_SIZE", config.DefaultChunkSize),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", config.DefaultChunkOverlap),
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Package config provides YAML-based configuration for ragsearch.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. RAGSEARCH_CONFIG environment variable
//  3. ~/.ragsearch/config.yaml
//  4. ./ragsearch.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline defaults shared by the CLI commands and the HTTP server.
// These mirror the values the retrieval pipeline was calibrated with.
const (
	// DefaultChunkSize is the maximum number of bytes per document chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the overlap between consecutive chunks in bytes.
	DefaultChunkOverlap = 200
	// DefaultTopK is the number of nearest chunks retrieved per question.
	DefaultTopK = 8
	// DefaultCollection is the vector index partition used when a request
	// does not name one.
	DefaultCollection = "default"
	// DefaultRelevanceThreshold is the maximum acceptable distance between a
	// query vector and a chunk vector. Calibrated for squared Euclidean
	// distance on unit vectors — see rag.ScoreToDistance.
	DefaultRelevanceThreshold = 1.5
	// DefaultDataFolder is where uploaded documents are stored by the server.
	DefaultDataFolder = "data"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Generation configures the LLM backend used to answer questions.
	Generation GenerationConfig `yaml:"generation"`

	// Embedding configures the embedding backend.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the Qdrant vector index connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Pipeline configures chunking and retrieval behaviour.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures the ingestion history database.
	History HistoryConfig `yaml:"history"`
}

// GenerationConfig holds LLM generation settings.
type GenerationConfig struct {
	// APIKey is the generation API key. Prefer env var GROQ_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the generation model name (default: llama-3.1-8b-instant).
	Model string `yaml:"model"`
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `yaml:"base_url"`
	// MaxTokens bounds the generated answer length.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls decoding randomness (kept low for factual answers).
	Temperature float32 `yaml:"temperature"`
}

// EmbeddingConfig holds embedding backend settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: openai, ollama.
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// OllamaHost is the Ollama server base URL for the ollama backend.
	OllamaHost string `yaml:"ollama_host"`
}

// QdrantConfig holds Qdrant vector index settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// PipelineConfig holds chunking and retrieval settings.
type PipelineConfig struct {
	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the overlap between consecutive chunks in bytes.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// TopK is the default number of chunks retrieved per question.
	TopK int `yaml:"top_k"`
	// Collection is the default vector index collection name.
	Collection string `yaml:"collection"`
	// RelevanceThreshold is the maximum retrieval distance kept as context.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	// DataFolder is where uploaded documents are stored.
	DataFolder string `yaml:"data_folder"`
	// Index selects the vector index backend: qdrant (default), memory.
	Index string `yaml:"index"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var RAGSEARCH_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig holds ingestion history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"GROQ_API_KEY", func(c *Config) string { return c.Generation.APIKey }},
	{"GENERATION_MODEL", func(c *Config) string { return c.Generation.Model }},
	{"GENERATION_BASE_URL", func(c *Config) string { return c.Generation.BaseURL }},
	{"GENERATION_MAX_TOKENS", func(c *Config) string { return intStr(c.Generation.MaxTokens) }},
	{"GENERATION_TEMPERATURE", func(c *Config) string { return float32Str(c.Generation.Temperature) }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Embedding.OllamaHost }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Pipeline.ChunkSize) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Pipeline.ChunkOverlap) }},
	{"TOP_K", func(c *Config) string { return intStr(c.Pipeline.TopK) }},
	{"RAGSEARCH_COLLECTION", func(c *Config) string { return c.Pipeline.Collection }},
	{"RELEVANCE_THRESHOLD", func(c *Config) string { return float64Str(c.Pipeline.RelevanceThreshold) }},
	{"DATA_FOLDER", func(c *Config) string { return c.Pipeline.DataFolder }},
	{"RAGSEARCH_INDEX", func(c *Config) string { return c.Pipeline.Index }},
	{"RAGSEARCH_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"RAGSEARCH_HISTORY_DB", func(c *Config) string { return c.History.DBPath }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("RAGSEARCH_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".ragsearch", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("ragsearch.yaml"); err == nil {
		return "ragsearch.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// float64Str converts a float64 to string, returning "" for zero values.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}

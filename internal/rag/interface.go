// Package rag defines the retrieval primitives shared by the ingestion and
// answer pipelines: the persisted chunk record and the vector index contract.
// Concrete implementations (Qdrant, in-memory) satisfy these interfaces so the
// pipelines never depend on a specific backend.
package rag

import (
	"context"
)

// Document is one persisted index record: a chunk of extracted text with its
// provenance. Records are immutable once inserted.
type Document struct {
	// ID is the unique identifier for this chunk (deterministic per
	// source+index, UUID-shaped for backend compatibility).
	ID string

	// Content is the chunk text.
	Content string

	// Source is the originating document path or file name.
	Source string

	// Metadata holds arbitrary key-value pairs (page marker, chunk index, etc.).
	Metadata map[string]string

	// Distance is the query-to-chunk distance assigned during search
	// (squared Euclidean on unit vectors — lower is more similar).
	// Zero value means the distance was not computed.
	Distance float64
}

// VectorIndex is the interface for persisting and searching chunk embeddings.
// The index is partitioned by collection name; a collection's backing storage
// is created on first use. Implementations must be safe to call from multiple
// goroutines, including concurrent Upsert and Search on one collection.
type VectorIndex interface {
	// Upsert appends a batch of documents with their pre-computed embeddings
	// to the named collection, returning only after a durable write.
	// The embeddings slice must be parallel to docs.
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error

	// Search returns up to topK records from the named collection ordered by
	// ascending Distance. topK larger than the stored record count returns
	// all available records without error.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error)

	// Close releases any resources held by the index.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must return L2-normalized vectors and be safe to call from
// multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice. Embedding a single
	// text is the batch form with one element.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoreToDistance converts a cosine similarity score (as returned by Qdrant
// for a collection using the cosine metric) into the squared Euclidean
// distance between the corresponding unit vectors:
//
//	‖a − b‖² = 2·(1 − cos(a, b))
//
// All distances in this codebase use this convention; the relevance threshold
// (default 1.5) is calibrated against it.
func ScoreToDistance(score float32) float64 {
	return 2 * (1 - float64(score))
}

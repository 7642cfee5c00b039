// Package embedder provides implementations of the rag.Embedder interface for
// converting text into dense vector embeddings. Each implementation talks to a
// different backend (OpenAI-compatible API, Ollama) via plain HTTP — no
// additional SDK dependencies are required.
//
// Every backend L2-normalizes its output before returning, so a dot product
// between any two vectors from this package equals their cosine similarity.
// The same backend and model must be used for indexing and querying a given
// collection, or distances are meaningless; this is an operator-enforced
// invariant across the index lifetime.
package embedder

import (
	"fmt"
	"math"
)

// BackendError reports a failure of the embedding backend: model resolution,
// transport, or inference. It is process-fatal at startup and recoverable
// per call at query time (the answer pipeline degrades to its fallback).
type BackendError struct {
	// Backend names the failing backend ("openai", "ollama").
	Backend string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s embedder: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *BackendError) Unwrap() error { return e.Err }

// normalize scales every vector to unit length in place and returns the
// slice. Zero vectors are left untouched.
func normalize(vectors [][]float32) [][]float32 {
	for _, v := range vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum == 0 {
			continue
		}
		inv := float32(1 / math.Sqrt(sum))
		for i := range v {
			v[i] *= inv
		}
	}
	return vectors
}

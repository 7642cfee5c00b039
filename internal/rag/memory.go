package rag

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-memory VectorIndex. It exists for tests and
// for RAGSEARCH_INDEX=memory development mode where no Qdrant instance is
// available. Nothing is persisted across process restarts.
//
// Embeddings are assumed L2-normalized, so a dot product equals cosine
// similarity and distances follow the same convention as QdrantIndex.
type MemoryIndex struct {
	// mu guards collections. Search takes a read lock, Upsert a write lock,
	// so concurrent ingest and query on one collection are safe.
	mu sync.RWMutex

	// collections maps collection name to its stored records.
	collections map[string]*memCollection
}

// memCollection holds the parallel record/vector slices for one collection.
type memCollection struct {
	docs    []Document
	vectors [][]float32
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memCollection)}
}

// Upsert appends the documents and their embeddings to the named collection,
// creating it if absent.
func (m *MemoryIndex) Upsert(_ context.Context, collection string, docs []Document, embeddings [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		c = &memCollection{}
		m.collections[collection] = c
	}
	c.docs = append(c.docs, docs...)
	c.vectors = append(c.vectors, embeddings...)
	return nil
}

// Search returns up to topK records ordered by ascending distance.
// An unknown collection behaves as an empty one.
func (m *MemoryIndex) Search(_ context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok || len(c.docs) == 0 {
		return nil, nil
	}

	type scored struct {
		idx      int
		distance float64
	}
	results := make([]scored, len(c.docs))
	for i, vec := range c.vectors {
		results[i] = scored{idx: i, distance: ScoreToDistance(dot(vec, queryEmbedding))}
	}

	// Ties broken by insertion order so results are deterministic for a
	// given index state.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].distance < results[b].distance
	})

	if topK > len(results) {
		topK = len(results)
	}
	docs := make([]Document, 0, topK)
	for _, r := range results[:topK] {
		doc := c.docs[r.idx]
		doc.Distance = r.distance
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error { return nil }

// dot computes the dot product over the shorter of the two vectors.
func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

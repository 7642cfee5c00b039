// Package ingestion implements the document ingestion pipeline.
// It loads a document from disk, splits the extracted text into overlapping
// chunks, embeds each chunk, and upserts the results into the vector index.
// This pipeline is invoked by the `ragsearch ingest` CLI command and the
// server's upload endpoint.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/docstack/ragsearch/internal/chunker"
	"github.com/docstack/ragsearch/internal/loader"
	"github.com/docstack/ragsearch/internal/logging"
	"github.com/docstack/ragsearch/internal/rag"
	"github.com/docstack/ragsearch/internal/store"
)

// DefaultCollection is the collection used when a request does not name one.
const DefaultCollection = "default"

// Request describes one document to ingest.
type Request struct {
	// FilePath is the path of the document on disk.
	FilePath string

	// Collection is the target vector index collection.
	// Defaults to DefaultCollection if empty.
	Collection string
}

// Result summarizes a completed ingestion.
type Result struct {
	// FilePath is the ingested document's path.
	FilePath string

	// Collection is the collection the chunks were written to.
	Collection string

	// Chunks is the number of chunks produced and stored.
	Chunks int
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to 200 if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the load → chunk → embed → upsert flow.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// index persists the embedded chunks.
	index rag.VectorIndex

	// history records completed ingestions. May be nil.
	history store.HistoryStore

	// splitter produces the overlapping chunks.
	splitter *chunker.Splitter
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
// The history store is optional; pass nil to skip ingestion records.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, history store.HistoryStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}

	splitter, err := chunker.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	return &Pipeline{
		embedder: embedder,
		index:    index,
		history:  history,
		splitter: splitter,
	}, nil
}

// Ingest runs the full pipeline for one document. Unsupported formats fail
// before the file is touched; any stage failure aborts the run with the
// stage's typed error intact for errors.As inspection.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	collection := req.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	log.Info("loading document",
		slog.String("file", req.FilePath),
		slog.String("collection", collection),
	)
	text, err := loader.Load(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	chunks, err := p.splitter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %s: %w", req.FilePath, err)
	}
	log.Info("document chunked",
		slog.String("file", req.FilePath),
		slog.Int("chunks", len(chunks)),
	)

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("ingestion: embedding failed for %s: %w", req.FilePath, err)
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, rag.Document{
			ID:      chunkID(req.FilePath, i),
			Content: chunk,
			Source:  req.FilePath,
			Metadata: map[string]string{
				"file_name":   filepath.Base(req.FilePath),
				"chunk_index": fmt.Sprintf("%d", i),
			},
		})
	}

	if err := p.index.Upsert(ctx, collection, docs, embeddings); err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	if p.history != nil {
		if err := p.history.Append(ctx, req.FilePath, collection, len(chunks)); err != nil {
			// History is an audit convenience; a failed record must not fail
			// an ingestion that already wrote the index.
			log.Warn("could not record ingestion history", slog.Any("error", err))
		}
	}

	logging.Success(log, "document ingested",
		slog.String("file", req.FilePath),
		slog.String("collection", collection),
		slog.Int("chunks", len(chunks)),
	)

	return &Result{
		FilePath:   req.FilePath,
		Collection: collection,
		Chunks:     len(chunks),
	}, nil
}

// chunkID generates a deterministic UUID-shaped ID for a chunk from its
// source path and index, so re-ingesting a file overwrites its old points
// instead of duplicating them.
func chunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}

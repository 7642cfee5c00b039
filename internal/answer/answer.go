// Package answer implements the retrieval and answer pipeline: it embeds the
// user's question, searches the vector index, filters the hits by relevance,
// and asks the generation backend to answer from the retrieved context.
//
// The pipeline degrades instead of failing: retrieval or generation errors are
// logged and surface to the user as a fixed fallback message, never as a raw
// error.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docstack/ragsearch/internal/budget"
	"github.com/docstack/ragsearch/internal/logging"
	"github.com/docstack/ragsearch/internal/rag"
)

// User-facing fixed responses.
const (
	// NoResultsMessage is returned verbatim when no chunk passes the
	// relevance filter.
	NoResultsMessage = "No relevant information found in the documents."

	// FallbackMessage is returned verbatim when retrieval or generation
	// fails. The underlying error is logged, never shown.
	FallbackMessage = "Temporary issue. Try again shortly."
)

// Retrieval defaults and bounds.
const (
	// DefaultTopK is the number of chunks retrieved when the caller does not
	// specify one.
	DefaultTopK = 8
	// MaxTopK caps retrieval size regardless of what the caller asks for.
	MaxTopK = 20
	// DefaultRelevanceThreshold is the maximum distance a chunk may have and
	// still be considered relevant (squared Euclidean on unit vectors).
	DefaultRelevanceThreshold = 1.5
)

// shortQuestionSuffix is appended to one- and two-character questions, which
// are too terse to embed meaningfully on their own.
const shortQuestionSuffix = " (please answer in detail)"

// systemPrompt instructs the generation model to stay within the retrieved
// context.
const systemPrompt = `You are a document search assistant. Answer the user's question using ONLY the provided context. Be concise and factual. If the context does not contain the answer, say so plainly instead of guessing.`

// ErrEmptyQuestion is returned by ParseQuery when the question is empty or
// whitespace-only.
var ErrEmptyQuestion = errors.New("answer: question must not be empty")

// Query is a validated, normalized question ready for the pipeline.
// Construct it with ParseQuery.
type Query struct {
	// Question is the normalized question text.
	Question string

	// Collection is the vector index collection to search.
	Collection string

	// TopK is the number of chunks to retrieve, clamped to [1, MaxTopK].
	TopK int
}

// ParseQuery validates and normalizes a raw question.
//
// The question is whitespace-trimmed; an empty result fails with
// ErrEmptyQuestion. Questions of one or two characters get a suffix asking
// for a detailed answer, since such fragments embed poorly. Normalization is
// idempotent: parsing an already-normalized question changes nothing.
//
// topK outside [1, MaxTopK] is clamped; zero means DefaultTopK. An empty
// collection falls back to "default".
func ParseQuery(raw, collection string, topK int) (Query, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return Query{}, ErrEmptyQuestion
	}
	if utf8.RuneCountInString(q) <= 2 {
		q += shortQuestionSuffix
	}

	switch {
	case topK == 0:
		topK = DefaultTopK
	case topK < 1:
		topK = 1
	case topK > MaxTopK:
		topK = MaxTopK
	}

	if collection == "" {
		collection = "default"
	}

	return Query{Question: q, Collection: collection, TopK: topK}, nil
}

// Generator produces an answer from a system prompt and a user prompt.
// *generation.Client satisfies this.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Config holds the answer pipeline settings.
type Config struct {
	// RelevanceThreshold is the maximum distance for a chunk to count as
	// relevant. Defaults to DefaultRelevanceThreshold if zero.
	RelevanceThreshold float64

	// MaxContextTokens caps the estimated size of the assembled context.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Pipeline answers questions from the indexed documents.
type Pipeline struct {
	embedder  rag.Embedder
	index     rag.VectorIndex
	generator Generator
	cfg       Config
}

// NewPipeline constructs an answer Pipeline.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, generator Generator, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("answer: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("answer: index must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("answer: generator must not be nil")
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		generator: generator,
		cfg:       cfg,
	}, nil
}

// Answer runs retrieval and generation for q and always returns a string the
// user can read. Retrieval or generation failures are logged at error level
// and reported as FallbackMessage; an empty retrieval yields NoResultsMessage
// without calling the generation backend.
func (p *Pipeline) Answer(ctx context.Context, q Query) string {
	log := logging.FromContext(ctx)

	embeddings, err := p.embedder.Embed(ctx, []string{q.Question})
	if err != nil || len(embeddings) != 1 {
		log.Error("question embedding failed", slog.Any("error", err))
		return FallbackMessage
	}

	hits, err := p.index.Search(ctx, q.Collection, embeddings[0], q.TopK)
	if err != nil {
		log.Error("vector search failed",
			slog.String("collection", q.Collection),
			slog.Any("error", err),
		)
		return FallbackMessage
	}

	relevant := hits[:0:0]
	for _, h := range hits {
		if h.Distance <= p.cfg.RelevanceThreshold {
			relevant = append(relevant, h)
		}
	}
	log.Debug("retrieval complete",
		slog.Int("hits", len(hits)),
		slog.Int("relevant", len(relevant)),
	)

	if len(relevant) == 0 {
		return NoResultsMessage
	}

	relevant = budget.TrimDocuments(relevant, p.cfg.MaxContextTokens)
	contextText := assembleContext(relevant)
	sources := collectSources(relevant)

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, q.Question)
	reply, err := p.generator.Generate(ctx, systemPrompt, user)
	if err != nil {
		log.Error("answer generation failed", slog.Any("error", err))
		return FallbackMessage
	}

	logging.Success(log, "question answered",
		slog.Int("context_chunks", len(relevant)),
		slog.Int("sources", len(sources)),
	)
	return reply + "\n\nSources: " + strings.Join(sources, " | ")
}

// assembleContext joins chunk contents with blank lines, most relevant first.
func assembleContext(docs []rag.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// collectSources returns the deduplicated source base names in first-seen
// order, which follows relevance order.
func collectSources(docs []rag.Document) []string {
	seen := make(map[string]bool, len(docs))
	var out []string
	for _, d := range docs {
		name := filepath.Base(d.Source)
		if name == "" || name == "." || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Package budget provides token budget estimation and context trimming for
// the answer pipeline. Because ragsearch supports multiple generation
// backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose and
// code). This deliberately under-estimates token counts to leave headroom
// for model-specific overhead.
package budget

import (
	"github.com/docstack/ragsearch/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default retrieved-context budget in
	// tokens. Conservative enough to fit within 8k-context models while
	// leaving room for the question, the prompt and the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// TrimDocuments drops retrieved documents from the tail of docs until the
// total estimated token count of their contents fits within maxTokens.
// Search results arrive ordered most-relevant-first, so the tail holds the
// least relevant hits and is sacrificed first.
//
// At least one document is always kept so the pipeline never silently turns
// a non-empty retrieval into an empty context.
func TrimDocuments(docs []rag.Document, maxTokens int) []rag.Document {
	if len(docs) == 0 {
		return docs
	}

	total := 0
	for _, d := range docs {
		total += Estimate(d.Content)
	}
	for len(docs) > 1 && total > maxTokens {
		last := len(docs) - 1
		total -= Estimate(docs[last].Content)
		docs = docs[:last]
	}
	return docs
}

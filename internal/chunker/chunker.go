// Package chunker splits extracted document text into overlapping chunks
// sized for embedding and for the generation context window. Splitting is a
// pure transform: no I/O, no shared state.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned when the extracted text contains nothing to
// chunk. This is distinct from an unsupported-format or load error, which
// occur earlier in document loading.
var ErrEmptyDocument = errors.New("chunker: document contains no extractable text")

// Splitter produces overlapping fixed-size chunks. Lengths are measured in
// bytes, matching the configured chunk_size/chunk_overlap units.
type Splitter struct {
	// chunkSize is the maximum chunk length.
	chunkSize int

	// chunkOverlap is the shared region between consecutive chunks.
	chunkOverlap int
}

// NewSplitter constructs a Splitter. chunkOverlap must be non-negative and
// strictly smaller than chunkSize.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunker: chunk overlap must be non-negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunker: chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split cuts text into an ordered sequence of chunks covering the whole input
// with no gaps. Each chunk after the first starts chunkSize−chunkOverlap
// bytes after the previous chunk's start, so consecutive chunks share a
// chunkOverlap-byte region; the final chunk may be shorter than chunkSize.
// Returns ErrEmptyDocument when the trimmed text is empty.
func (s *Splitter) Split(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil, ErrEmptyDocument
	}

	var chunks []string
	stride := s.chunkSize - s.chunkOverlap

	for start := 0; start < len(text); start += stride {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}

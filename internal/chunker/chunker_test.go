package chunker

import (
	"errors"
	"strings"
	"testing"
)

func Test_NewSplitter_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewSplitter(tc.size, tc.overlap); err == nil {
				t.Errorf("NewSplitter(%d, %d): expected error", tc.size, tc.overlap)
			}
		})
	}
}

func Test_Split_EmptyDocument(t *testing.T) {
	t.Parallel()
	s, err := NewSplitter(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "   ", "\n\t \n"} {
		if _, err := s.Split(text); !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("Split(%q): want ErrEmptyDocument, got %v", text, err)
		}
	}
}

func Test_Split_ChunkSizeRespected(t *testing.T) {
	t.Parallel()
	s, err := NewSplitter(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("abcdefghij", 55) // 550 bytes
	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d length %d exceeds chunk size", i, len(c))
		}
	}
}

func Test_Split_OverlapAndCoverage(t *testing.T) {
	t.Parallel()
	const size, overlap = 100, 20
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("0123456789", 35) // 350 bytes
	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	// Consecutive chunks share the configured overlap region.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if !strings.HasPrefix(cur, prev[len(prev)-overlap:]) {
			t.Errorf("chunk %d does not start with the previous chunk's %d-byte tail", i, overlap)
		}
	}

	// Dropping each chunk's leading overlap reconstructs the input exactly.
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		sb.WriteString(c[overlap:])
	}
	if sb.String() != text {
		t.Error("concatenating chunks with overlaps removed does not reconstruct the input")
	}
}

func Test_Split_ChunkCountComputable(t *testing.T) {
	t.Parallel()
	const size, overlap = 1000, 200
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatal(err)
	}

	// 2000 bytes with stride 800: starts at 0, 800, 1600 → 3 chunks.
	text := strings.Repeat("x", 2000)
	chunks, err := s.Split(text)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("want 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 400 {
		t.Errorf("final chunk: want 400 bytes, got %d", len(chunks[2]))
	}
}

func Test_Split_ShortDocumentSingleChunk(t *testing.T) {
	t.Parallel()
	s, err := NewSplitter(1000, 200)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := s.Split("short document")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short document" {
		t.Errorf("want single chunk with full text, got %v", chunks)
	}
}

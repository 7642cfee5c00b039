package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docstack/ragsearch/internal/rag"
)

// fakeEmbedder returns a fixed unit vector for every text.
type fakeEmbedder struct {
	vec  []float32
	fail error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

// fakeIndex returns canned search results.
type fakeIndex struct {
	hits []rag.Document
	fail error
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, _ []rag.Document, _ [][]float32) error {
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ []float32, topK int) ([]rag.Document, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if topK > len(f.hits) {
		topK = len(f.hits)
	}
	return f.hits[:topK], nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeGenerator records its prompts and returns a canned reply.
type fakeGenerator struct {
	calls      int
	lastUser   string
	lastSystem string
	reply      string
	fail       error
}

func (f *fakeGenerator) Generate(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	if f.fail != nil {
		return "", f.fail
	}
	return f.reply, nil
}

func newTestPipeline(t *testing.T, idx rag.VectorIndex, gen Generator) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&fakeEmbedder{vec: []float32{1, 0}}, idx, gen, Config{})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func Test_ParseQuery_EmptyQuestion(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "   ", "\t\n"} {
		if _, err := ParseQuery(raw, "", 0); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("ParseQuery(%q): want ErrEmptyQuestion, got %v", raw, err)
		}
	}
}

func Test_ParseQuery_ShortQuestionExtended(t *testing.T) {
	t.Parallel()
	q, err := ParseQuery("k8", "", 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Question != "k8"+shortQuestionSuffix {
		t.Errorf("question = %q", q.Question)
	}

	// Three characters and up pass through untouched.
	q, err = ParseQuery("abc", "", 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Question != "abc" {
		t.Errorf("question = %q, want abc", q.Question)
	}
}

func Test_ParseQuery_Idempotent(t *testing.T) {
	t.Parallel()
	first, err := ParseQuery("  what is a pod?  ", "infra", 5)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	second, err := ParseQuery(first.Question, first.Collection, first.TopK)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if second != first {
		t.Errorf("normalization not idempotent: %+v vs %+v", first, second)
	}
}

func Test_ParseQuery_TopKClamped(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want int }{
		{0, DefaultTopK},
		{-3, 1},
		{1, 1},
		{20, 20},
		{100, MaxTopK},
	}
	for _, c := range cases {
		q, err := ParseQuery("question", "", c.in)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if q.TopK != c.want {
			t.Errorf("topK %d clamped to %d, want %d", c.in, q.TopK, c.want)
		}
	}
}

func Test_ParseQuery_DefaultCollection(t *testing.T) {
	t.Parallel()
	q, err := ParseQuery("question", "", 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Collection != "default" {
		t.Errorf("collection = %q, want default", q.Collection)
	}
}

func Test_Answer_FiltersByDistance(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{hits: []rag.Document{
		{ID: "a", Content: "close hit", Source: "a.txt", Distance: 0.2},
		{ID: "b", Content: "ok hit", Source: "b.txt", Distance: 0.9},
		{ID: "c", Content: "too far", Source: "c.txt", Distance: 1.6},
		{ID: "d", Content: "way off", Source: "d.txt", Distance: 2.0},
	}}
	gen := &fakeGenerator{reply: "answer text"}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("what is this", "", 0)
	got := p.Answer(context.Background(), q)

	if !strings.Contains(gen.lastUser, "close hit") || !strings.Contains(gen.lastUser, "ok hit") {
		t.Errorf("relevant chunks missing from prompt: %q", gen.lastUser)
	}
	if strings.Contains(gen.lastUser, "too far") || strings.Contains(gen.lastUser, "way off") {
		t.Errorf("filtered chunks leaked into prompt: %q", gen.lastUser)
	}
	if !strings.Contains(got, "Sources: a.txt | b.txt") {
		t.Errorf("sources line wrong: %q", got)
	}
}

func Test_Answer_NoRelevantHitsShortCircuits(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{hits: []rag.Document{
		{ID: "c", Content: "too far", Source: "c.txt", Distance: 1.8},
	}}
	gen := &fakeGenerator{reply: "should not be used"}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("anything", "", 0)
	got := p.Answer(context.Background(), q)

	if got != NoResultsMessage {
		t.Errorf("answer = %q, want %q", got, NoResultsMessage)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called when nothing is relevant")
	}
}

func Test_Answer_SourceDeduplication(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{hits: []rag.Document{
		{ID: "1", Content: "x", Source: "/data/report.pdf", Distance: 0.1},
		{ID: "2", Content: "y", Source: "/other/report.pdf", Distance: 0.2},
		{ID: "3", Content: "z", Source: "/data/notes.md", Distance: 0.3},
	}}
	gen := &fakeGenerator{reply: "answer"}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("question", "", 0)
	got := p.Answer(context.Background(), q)

	if !strings.HasSuffix(got, "Sources: report.pdf | notes.md") {
		t.Errorf("sources not deduplicated by base name: %q", got)
	}
}

func Test_Answer_GenerationFailureFallsBack(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{hits: []rag.Document{
		{ID: "a", Content: "content", Source: "a.txt", Distance: 0.3},
	}}
	gen := &fakeGenerator{fail: errors.New("backend down")}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("question", "", 0)
	if got := p.Answer(context.Background(), q); got != FallbackMessage {
		t.Errorf("answer = %q, want %q", got, FallbackMessage)
	}
}

func Test_Answer_SearchFailureFallsBack(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{fail: errors.New("index unreachable")}
	gen := &fakeGenerator{reply: "unused"}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("question", "", 0)
	if got := p.Answer(context.Background(), q); got != FallbackMessage {
		t.Errorf("answer = %q, want %q", got, FallbackMessage)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called when search fails")
	}
}

func Test_Answer_EmbedFailureFallsBack(t *testing.T) {
	t.Parallel()
	p, err := NewPipeline(
		&fakeEmbedder{fail: errors.New("no backend")},
		&fakeIndex{},
		&fakeGenerator{},
		Config{},
	)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	q, _ := ParseQuery("question", "", 0)
	if got := p.Answer(context.Background(), q); got != FallbackMessage {
		t.Errorf("answer = %q, want %q", got, FallbackMessage)
	}
}

func Test_Answer_ContextJoinedByBlankLines(t *testing.T) {
	t.Parallel()
	idx := &fakeIndex{hits: []rag.Document{
		{ID: "1", Content: "first chunk", Source: "a.txt", Distance: 0.1},
		{ID: "2", Content: "second chunk", Source: "a.txt", Distance: 0.2},
	}}
	gen := &fakeGenerator{reply: "answer"}
	p := newTestPipeline(t, idx, gen)

	q, _ := ParseQuery("question", "", 0)
	p.Answer(context.Background(), q)

	if !strings.Contains(gen.lastUser, "first chunk\n\nsecond chunk") {
		t.Errorf("chunks not joined by blank line: %q", gen.lastUser)
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docstack/ragsearch/internal/answer"
	"github.com/docstack/ragsearch/internal/ingestion"
	"github.com/docstack/ragsearch/internal/loader"
)

// fakeAnswerer returns a canned reply and records the last query.
type fakeAnswerer struct {
	reply string
	last  answer.Query
}

func (f *fakeAnswerer) Answer(_ context.Context, q answer.Query) string {
	f.last = q
	return f.reply
}

// fakeIngester returns a canned result or error and records the last request.
type fakeIngester struct {
	res  *ingestion.Result
	fail error
	last ingestion.Request
}

func (f *fakeIngester) Ingest(_ context.Context, req ingestion.Request) (*ingestion.Result, error) {
	f.last = req
	if f.fail != nil {
		return nil, f.fail
	}
	return f.res, nil
}

// newTestServer builds a Server with fakes, a fresh registry, and a temp data
// folder, returning it with an httptest server wrapping its mux.
func newTestServer(t *testing.T, ans *fakeAnswerer, ing *fakeIngester, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	if ans == nil {
		ans = &fakeAnswerer{reply: "answer"}
	}
	if ing == nil {
		ing = &fakeIngester{res: &ingestion.Result{Collection: "default", Chunks: 1}}
	}
	cfg := &Config{
		DataFolder: t.TempDir(),
		Registry:   prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(ans, ing, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.stopRL()
	})
	return s, ts
}

// postAsk sends a POST /api/ask request with the given body.
func postAsk(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post ask: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func Test_HandleAsk(t *testing.T) {
	t.Parallel()
	ans := &fakeAnswerer{reply: "the answer\n\nSources: a.txt"}
	_, ts := newTestServer(t, ans, nil, nil)

	resp := postAsk(t, ts, `{"question":"what is a pod?","topK":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got askResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Answer != ans.reply {
		t.Errorf("answer = %q", got.Answer)
	}
	if ans.last.TopK != 5 {
		t.Errorf("topK = %d, want 5", ans.last.TopK)
	}
	if ans.last.Collection != "default" {
		t.Errorf("collection = %q, want default", ans.last.Collection)
	}
}

func Test_HandleAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, nil)

	resp := postAsk(t, ts, `{"question":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func Test_HandleAsk_MalformedBody(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, nil)

	resp := postAsk(t, ts, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// postIngest uploads a file via multipart form to POST /api/ingest.
func postIngest(t *testing.T, ts *httptest.Server, filename, content, collection string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	if collection != "" {
		mw.WriteField("collection", collection)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/ingest", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post ingest: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func Test_HandleIngest(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{res: &ingestion.Result{Collection: "docs", Chunks: 4}}
	s, ts := newTestServer(t, nil, ing, nil)

	resp := postIngest(t, ts, "manual.txt", "file body", "docs")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var got ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Chunks != 4 || got.Collection != "docs" || got.File != "manual.txt" {
		t.Errorf("unexpected response: %+v", got)
	}

	// The upload was stored in the data folder before ingestion.
	stored := filepath.Join(s.cfg.DataFolder, "manual.txt")
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "file body" {
		t.Errorf("stored content = %q", data)
	}
	if ing.last.FilePath != stored {
		t.Errorf("pipeline got path %q, want %q", ing.last.FilePath, stored)
	}
	if ing.last.Collection != "docs" {
		t.Errorf("pipeline got collection %q, want docs", ing.last.Collection)
	}
}

func Test_HandleIngest_StripsClientPath(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{res: &ingestion.Result{Collection: "default", Chunks: 1}}
	s, ts := newTestServer(t, nil, ing, nil)

	resp := postIngest(t, ts, "../../etc/evil.txt", "content", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := filepath.Join(s.cfg.DataFolder, "evil.txt")
	if ing.last.FilePath != want {
		t.Errorf("path = %q, want %q", ing.last.FilePath, want)
	}
}

func Test_HandleIngest_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{fail: fmt.Errorf("ingestion: %w", &loader.UnsupportedFormatError{Ext: ".xlsx"})}
	_, ts := newTestServer(t, nil, ing, nil)

	resp := postIngest(t, ts, "sheet.xlsx", "content", "")
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func Test_HandleIngest_PipelineFailure(t *testing.T) {
	t.Parallel()
	ing := &fakeIngester{fail: errors.New("index down")}
	_, ts := newTestServer(t, nil, ing, nil)

	resp := postIngest(t, ts, "doc.txt", "content", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func Test_HandleIngest_MissingFilePart(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, nil)

	resp, err := http.Post(ts.URL+"/api/ingest", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func Test_HandleHealth(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

// failingPinger always reports a down dependency.
type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }
func (failingPinger) Name() string               { return "qdrant" }

// okPinger always reports a healthy dependency.
type okPinger struct{ name string }

func (p okPinger) Ping(context.Context) error { return nil }
func (p okPinger) Name() string               { return p.name }

func Test_HandleReady_AllHealthy(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, func(cfg *Config) {
		cfg.Pingers = []Pinger{okPinger{name: "qdrant"}, okPinger{name: "groq"}}
	})

	resp, err := http.Get(ts.URL + "/api/ready")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got readyResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Ready || len(got.Checks) != 2 {
		t.Errorf("unexpected response: %+v", got)
	}
}

func Test_HandleReady_DependencyDown(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, func(cfg *Config) {
		cfg.Pingers = []Pinger{failingPinger{}}
	})

	resp, err := http.Get(ts.URL + "/api/ready")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	var got readyResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Ready || len(got.Checks) != 1 || got.Checks[0].OK {
		t.Errorf("unexpected response: %+v", got)
	}
}

func Test_Auth_RequiredWhenConfigured(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, func(cfg *Config) {
		cfg.APIKey = "secret"
	})

	// No token → 401 with challenge.
	resp := postAsk(t, ts, `{"question":"hello"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); !strings.Contains(got, "ragsearch") {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	// Wrong token → 401.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/ask", strings.NewReader(`{"question":"hello"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp2.StatusCode)
	}

	// Correct token → 200.
	req3, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/ask", strings.NewReader(`{"question":"hello"}`))
	req3.Header.Set("Authorization", "Bearer secret")
	resp3, err := http.DefaultClient.Do(req3)
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp3.StatusCode)
	}
}

func Test_Auth_HealthStaysOpen(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, func(cfg *Config) {
		cfg.APIKey = "secret"
	})

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200 without auth", resp.StatusCode)
	}
}

func Test_RateLimit_Enforced(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, func(cfg *Config) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 2
	})

	statuses := make([]int, 0, 3)
	for range 3 {
		resp := postAsk(t, ts, `{"question":"hello"}`)
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests rejected: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

func Test_MetricsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil, nil, nil)

	// Generate one ask request so counters are non-empty.
	postAsk(t, ts, `{"question":"hello"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ragsearch_ask_requests_total") {
		t.Errorf("ask counter missing from /metrics output")
	}
	if !strings.Contains(string(body), "ragsearch_http_requests_total") {
		t.Errorf("http counter missing from /metrics output")
	}
}

func Test_BearerToken(t *testing.T) {
	t.Parallel()
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  padded ", "padded"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			r.Header.Set("Authorization", c.header)
		}
		if got := bearerToken(r); got != c.want {
			t.Errorf("bearerToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

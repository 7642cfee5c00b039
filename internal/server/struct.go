package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docstack/ragsearch/internal/answer"
	"github.com/docstack/ragsearch/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// DataFolder is where uploaded documents are stored before ingestion.
	// Defaults to "data".
	DataFolder string
	// Registry is the Prometheus registry metrics are registered against.
	// If nil, a new registry is created. Tests inject a fresh registry to
	// stay hermetic.
	Registry *prometheus.Registry
}

// answerer runs the retrieval and answer pipeline for one query.
// *answer.Pipeline satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, q answer.Query) string
}

// ingester runs the document ingestion pipeline for one request.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	Ingest(ctx context.Context, req ingestion.Request) (*ingestion.Result, error)
}

// Server is the HTTP server exposing the ask and ingest pipelines.
type Server struct {
	// answerer handles /api/ask.
	answerer answerer
	// ingester handles /api/ingest.
	ingester ingester
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// Collection is the vector index collection to search. Optional.
	Collection string `json:"collection,omitempty"`
	// TopK is the number of chunks to retrieve. Optional; clamped server-side.
	TopK int `json:"topK,omitempty"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the generated answer, including the trailing sources line.
	Answer string `json:"answer"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	// File is the stored file name.
	File string `json:"file"`
	// Collection is the collection the chunks were written to.
	Collection string `json:"collection"`
	// Chunks is the number of chunks produced and stored.
	Chunks int `json:"chunks"`
}

// Package server implements the HTTP server that exposes the ragsearch
// pipelines via a small REST API: document upload on /api/ingest, question
// answering on /api/ask, plus health, readiness and metrics endpoints.
// The server is started by the `ragsearch serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docstack/ragsearch/internal/answer"
	"github.com/docstack/ragsearch/internal/chunker"
	"github.com/docstack/ragsearch/internal/ingestion"
	"github.com/docstack/ragsearch/internal/loader"
	"github.com/docstack/ragsearch/internal/logging"
)

// maxUploadBytes caps the size of a single uploaded document (50 MiB).
const maxUploadBytes = 50 << 20

// New constructs a Server from the provided pipelines and config.
func New(ans answerer, ing ingester, cfg *Config) (*Server, error) {
	if ans == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if ing == nil {
		return nil, fmt.Errorf("server: ingester must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Generation calls can be slow; leave headroom.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.DataFolder == "" {
		cfg.DataFolder = "data"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIKey == "" {
		log.Warn("server: RAGSEARCH_API_KEY not set — API authentication is disabled")
	}

	s := &Server{
		answerer: ans,
		ingester: ing,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.Registry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	// protected wraps an API handler with the full middleware chain:
	// request logging → auth → rate limiting → metrics.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		var handler http.Handler = h
		handler = s.metrics.instrument(name, handler)
		handler = rl.middleware(handler)
		handler = authMiddleware(cfg.APIKey, handler)
		return requestLogger(log, handler)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/ask", protected("ask", s.handleAsk))
	mux.Handle("POST /api/ingest", protected("ingest", s.handleIngest))
	// Health and readiness stay unauthenticated so orchestrators can probe.
	mux.Handle("GET /api/health", requestLogger(log, http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", requestLogger(log, http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the configured mux, used by tests via httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleAsk handles POST /api/ask. The answer pipeline never fails outward;
// only malformed requests produce non-200 responses.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	q, err := answer.ParseQuery(req.Question, req.Collection, req.TopK)
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	reply := s.answerer.Answer(r.Context(), q)
	s.metrics.askDurationSeconds.Observe(time.Since(start).Seconds())
	s.metrics.askRequestsTotal.WithLabelValues(askOutcome(reply)).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(askResponse{Answer: reply})
}

// askOutcome maps the pipeline's fixed responses to a metrics outcome label.
func askOutcome(reply string) string {
	switch reply {
	case answer.NoResultsMessage:
		return outcomeNoResults
	case answer.FallbackMessage:
		return outcomeFallback
	default:
		return outcomeOK
	}
}

// handleIngest handles POST /api/ingest. The request is a multipart form with
// a "file" part and an optional "collection" field. The upload is stored in
// the data folder and run through the ingestion pipeline.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "multipart form with a \"file\" part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Base strips any client-supplied directory components.
	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}

	dest := filepath.Join(s.cfg.DataFolder, name)
	if err := s.saveUpload(file, dest); err != nil {
		log.Error("could not store upload", slog.Any("error", err))
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeError).Inc()
		http.Error(w, "could not store upload", http.StatusInternalServerError)
		return
	}

	res, err := s.ingester.Ingest(r.Context(), ingestion.Request{
		FilePath:   dest,
		Collection: r.FormValue("collection"),
	})
	if err != nil {
		s.writeIngestError(w, r, err)
		return
	}

	s.metrics.ingestRequestsTotal.WithLabelValues(outcomeOK).Inc()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ingestResponse{
		File:       name,
		Collection: res.Collection,
		Chunks:     res.Chunks,
	})
}

// writeIngestError maps pipeline errors onto HTTP status codes.
func (s *Server) writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var ufe *loader.UnsupportedFormatError
	switch {
	case errors.As(err, &ufe):
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, ufe.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, chunker.ErrEmptyDocument):
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeBadRequest).Inc()
		http.Error(w, "document contains no extractable text", http.StatusBadRequest)
	default:
		log.Error("ingestion failed", slog.Any("error", err))
		s.metrics.ingestRequestsTotal.WithLabelValues(outcomeError).Inc()
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
	}
}

// saveUpload writes the uploaded file to dest, creating the data folder if
// needed.
func (s *Server) saveUpload(src io.Reader, dest string) error {
	if err := os.MkdirAll(s.cfg.DataFolder, 0o750); err != nil {
		return fmt.Errorf("create data folder: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Close()
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

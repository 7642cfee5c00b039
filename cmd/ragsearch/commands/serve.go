package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docstack/ragsearch/internal/answer"
	"github.com/docstack/ragsearch/internal/config"
	"github.com/docstack/ragsearch/internal/ingestion"
	"github.com/docstack/ragsearch/internal/logging"
	"github.com/docstack/ragsearch/internal/server"
)

// NewServeCmd constructs the `ragsearch serve` command, which starts the
// HTTP server exposing the ingest and ask pipelines.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragsearch HTTP server",
		Long: `Start the ragsearch HTTP server.

The server exposes:
  POST /api/ingest   upload and index a document (multipart form)
  POST /api/ask      answer a question from the indexed documents
  GET  /api/health   liveness probe
  GET  /api/ready    readiness probe (checks Qdrant and the generation backend)
  GET  /metrics      Prometheus metrics

Set RAGSEARCH_API_KEY to require Bearer authentication on the /api/ask and
/api/ingest routes.

Examples:
  ragsearch serve
  ragsearch serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			index, qdrantIndex, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer index.Close()

			gen, err := buildGenerator(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			history, closeHistory := buildHistory(log)
			defer closeHistory()

			ingestPipeline, err := ingestion.NewPipeline(emb, index, history, chunkingFromEnv())
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			answerPipeline, err := answer.NewPipeline(emb, index, gen, answer.Config{
				RelevanceThreshold: getEnvFloat("RELEVANCE_THRESHOLD", config.DefaultRelevanceThreshold),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create answer pipeline: %w", err)
			}

			var pingers []server.Pinger
			if qdrantIndex != nil {
				pingers = append(pingers, server.NewQdrantPinger(qdrantIndex.Client()))
			}
			pingers = append(pingers, server.NewProbe("generation", gen.Ping))

			srv, err := server.New(answerPipeline, ingestPipeline, &server.Config{
				Host:       host,
				Port:       port,
				Logger:     log,
				Pingers:    pingers,
				APIKey:     os.Getenv("RAGSEARCH_API_KEY"),
				DataFolder: getEnvOrDefault("DATA_FOLDER", config.DefaultDataFolder),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

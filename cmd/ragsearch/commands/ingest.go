package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docstack/ragsearch/internal/ingestion"
	"github.com/docstack/ragsearch/internal/logging"
)

// NewIngestCmd constructs the `ragsearch ingest` command, which runs the
// document ingestion pipeline to populate the vector index.
func NewIngestCmd() *cobra.Command {
	var collection string
	var files []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the vector index",
		Long: `Extract, chunk, embed and index one or more documents.

Supported formats: PDF, DOCX, TXT, Markdown. Each document is split into
overlapping chunks, embedded, and written to the configured collection.
Re-ingesting a file replaces its previous chunks.

Relevant environment variables:
  QDRANT_HOST            Qdrant server hostname (default: localhost)
  QDRANT_PORT            Qdrant gRPC port (default: 6334)
  RAGSEARCH_COLLECTION   Default collection name (default: default)
  EMBEDDING_PROVIDER     Embedding backend: ollama, openai (default: ollama)
  CHUNK_SIZE             Chunk size in characters (default: 1000)
  CHUNK_OVERLAP          Overlap between chunks (default: 200)

Examples:
  ragsearch ingest --file docs/handbook.pdf
  ragsearch ingest --file a.txt --file b.md --collection onboarding`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if len(files) == 0 {
				return fmt.Errorf("ingest: at least one --file is required")
			}
			if collection == "" {
				collection = getEnvOrDefault("RAGSEARCH_COLLECTION", "default")
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			index, _, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			history, closeHistory := buildHistory(log)
			defer closeHistory()

			pipeline, err := ingestion.NewPipeline(emb, index, history, chunkingFromEnv())
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			total := 0
			for _, f := range files {
				res, err := pipeline.Ingest(ctx, ingestion.Request{
					FilePath:   f,
					Collection: collection,
				})
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				fmt.Printf("ingested %s: %d chunks into %q\n", res.FilePath, res.Chunks, res.Collection)
				total += res.Chunks
			}

			fmt.Printf("done: %d documents, %d chunks\n", len(files), total)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Document to ingest (repeatable)")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Target collection (default: RAGSEARCH_COLLECTION or \"default\")")

	return cmd
}

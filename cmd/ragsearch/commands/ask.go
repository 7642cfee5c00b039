package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docstack/ragsearch/internal/answer"
	"github.com/docstack/ragsearch/internal/config"
	"github.com/docstack/ragsearch/internal/logging"
)

// NewAskCmd constructs the `ragsearch ask` command, which answers a single
// natural language question from the indexed documents.
func NewAskCmd() *cobra.Command {
	var collection string
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question across the indexed documents",
		Long: `Answer a natural language question using the indexed documents.

The question is embedded, the closest chunks are retrieved from the vector
index, and the generation backend produces an answer grounded in those
chunks. The answer ends with the list of source documents used.

Examples:
  ragsearch ask "what is our refund policy?"
  ragsearch ask --collection onboarding "who approves expense reports?"
  ragsearch ask --top-k 12 "summarise the incident response process"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if collection == "" {
				collection = getEnvOrDefault("RAGSEARCH_COLLECTION", "default")
			}
			if topK == 0 {
				topK = getEnvInt("TOP_K", config.DefaultTopK)
			}

			q, err := answer.ParseQuery(strings.Join(args, " "), collection, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			index, _, err := buildIndex(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer index.Close()

			gen, err := buildGenerator(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			pipeline, err := answer.NewPipeline(emb, index, gen, answer.Config{
				RelevanceThreshold: getEnvFloat("RELEVANCE_THRESHOLD", config.DefaultRelevanceThreshold),
			})
			if err != nil {
				return fmt.Errorf("ask: failed to create pipeline: %w", err)
			}

			fmt.Println(pipeline.Answer(ctx, q))
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to search (default: RAGSEARCH_COLLECTION or \"default\")")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (1-20, default: 8)")

	return cmd
}

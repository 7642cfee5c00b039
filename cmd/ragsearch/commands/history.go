package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docstack/ragsearch/internal/logging"
)

// NewHistoryCmd constructs the `ragsearch history` command, which lists the
// most recent document ingestions recorded in the local history database.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent document ingestions",
		Long: `List the most recent document ingestions, newest first.

Each successful ingestion is recorded in a local SQLite database
(~/.ragsearch/history.db by default, overridable with RAGSEARCH_HISTORY_DB).

Examples:
  ragsearch history
  ragsearch history --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			history, closeHistory := buildHistory(log)
			defer closeHistory()
			if history == nil {
				return fmt.Errorf("history: store is disabled or unavailable")
			}

			recs, err := history.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("no ingestions recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tFILE\tCOLLECTION\tCHUNKS")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
					r.CreatedAt.Format("2006-01-02 15:04:05"), r.FilePath, r.Collection, r.Chunks)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")

	return cmd
}

// Package commands defines all Cobra CLI commands for the ragsearch binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docstack/ragsearch/internal/audit"
	"github.com/docstack/ragsearch/internal/config"
	"github.com/docstack/ragsearch/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragsearch",
		Short: "ragsearch — ask questions across your own documents",
		Long: `ragsearch indexes your documents (PDF, DOCX, TXT, Markdown) into a vector
store and answers natural language questions from their content.

Ingest documents with 'ragsearch ingest', then query them with
'ragsearch ask' or run 'ragsearch serve' for the HTTP API.

Configuration is read from environment variables or a YAML config file
(~/.ragsearch/config.yaml); environment variables always win.
See 'ragsearch --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragsearch/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewAskCmd(),
		NewServeCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}

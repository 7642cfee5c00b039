// Command ragsearch is the entry point for the ragsearch document QA tool.
// It provides a CLI (via Cobra) for ingesting documents and asking questions,
// plus an optional HTTP server exposing the same pipelines over REST.
package main

import (
	"fmt"
	"os"

	"github.com/docstack/ragsearch/cmd/ragsearch/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

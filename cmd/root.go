// Package cmd wires the CLI surface of the orchestration service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlprime",
		Short: "Orchestration core for a web-RAG pipeline.",
		Long: `crawlprime turns URLs into queryable knowledge. It plans and executes
crawl, map, and ingest steps against the retrieval pipeline, tracks
asynchronous ingest jobs, and answers queries with adaptive hybrid
retrieval weights.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults apply without one)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

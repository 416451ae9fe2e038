package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/config"
)

func newIngestCmd() *cobra.Command {
	var (
		rawURL string
		output string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one synchronous ingest and write artifacts to a directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Storage.Path
			}

			pipe, err := buildPipeline(cfg, output)
			if err != nil {
				return err
			}
			defer pipe.close()

			pipe.logger.Info("starting ingest",
				zap.String("url", rawURL),
				zap.String("output", output),
			)
			report, err := pipe.orch.Ingest(cmd.Context(), rawURL)
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			cmd.Println(string(payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "URL to ingest")
	cmd.Flags().StringVar(&output, "output", "", "artifact output directory (defaults to storage.path)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

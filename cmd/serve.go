package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/api"
	"github.com/contextprime/crawlprime/internal/config"
	"github.com/contextprime/crawlprime/internal/dispatcher"
	jobmem "github.com/contextprime/crawlprime/internal/jobstore/memory"
	"github.com/contextprime/crawlprime/internal/metrics"
	"github.com/contextprime/crawlprime/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service with background ingest workers.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg config.Config) error {
	pipe, err := buildPipeline(cfg, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer pipe.close()

	logger := pipe.logger
	metrics.Init()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := make([]*worker.Worker, cfg.Jobs.Concurrency)
	for i := range workers {
		workers[i] = worker.New(pipe.queue, pipe.jobs, pipe.orch, logger)
	}
	disp := dispatcher.New(workers)
	go disp.Run(ctx)

	sweeper := jobmem.NewSweeper(pipe.jobs, cfg.Jobs.SweepInterval, logger)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(pipe.orch, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	pipe.queue.Close()
	return nil
}

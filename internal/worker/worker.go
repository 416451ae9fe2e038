// Package worker implements the background ingest execution loop.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/metrics"
	"github.com/contextprime/crawlprime/internal/rag"
)

// PlanExecutor runs a job's plan. Satisfied by the orchestrator.
type PlanExecutor interface {
	ExecuteJob(ctx context.Context, jobID string, steps []rag.PlanStep) (rag.IngestReport, error)
}

// Worker consumes queue items and drives each job through its lifecycle.
// Errors are captured into the job record and never escape the loop.
type Worker struct {
	queue    rag.Queue
	jobs     rag.JobStore
	executor PlanExecutor
	logger   *zap.Logger
}

// New constructs a Worker.
func New(queue rag.Queue, jobs rag.JobStore, executor PlanExecutor, logger *zap.Logger) *Worker {
	return &Worker{
		queue:    queue,
		jobs:     jobs,
		executor: executor,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job",
			zap.String("job_id", item.JobID),
			zap.Duration("queue_wait", time.Since(item.Submitted)),
		)
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item rag.QueueItem) {
	if err := w.jobs.Update(ctx, item.JobID, rag.JobUpdate{Status: rag.JobStatusRunning}); err != nil {
		w.logger.Error("job not transitioned to running",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
		return
	}

	report, err := w.executor.ExecuteJob(ctx, item.JobID, item.Steps)
	if err != nil {
		w.finish(ctx, item.JobID, rag.JobUpdate{
			Status:    rag.JobStatusError,
			ErrorText: err.Error(),
		})
		metrics.ObserveJobFinished(string(rag.JobStatusError), 0, len(report.Failed))
		w.logger.Warn("ingest job failed",
			zap.String("job_id", item.JobID),
			zap.String("url", item.URL),
			zap.Error(err),
		)
		return
	}

	w.finish(ctx, item.JobID, rag.JobUpdate{
		Status:         rag.JobStatusDone,
		ChunksIngested: report.ChunksIngested,
		Failed:         report.Failed,
	})
	metrics.ObserveJobFinished(string(rag.JobStatusDone), report.ChunksIngested, len(report.Failed))
	w.logger.Info("ingest job done",
		zap.String("job_id", item.JobID),
		zap.String("url", item.URL),
		zap.Int("chunks", report.ChunksIngested),
		zap.Int("page_failures", len(report.Failed)),
	)
}

// finish applies the terminal update with a fresh context so a canceled
// job context cannot leave the record stuck in running.
func (w *Worker) finish(ctx context.Context, jobID string, update rag.JobUpdate) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := w.jobs.Update(ctx, jobID, update); err != nil {
		w.logger.Error("terminal job update failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

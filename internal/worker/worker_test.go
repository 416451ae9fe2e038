package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

type chanQueue struct {
	ch chan rag.QueueItem
}

func newChanQueue(depth int) *chanQueue {
	return &chanQueue{ch: make(chan rag.QueueItem, depth)}
}

func (q *chanQueue) Enqueue(ctx context.Context, item rag.QueueItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *chanQueue) Dequeue(ctx context.Context) (rag.QueueItem, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		return rag.QueueItem{}, ctx.Err()
	}
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]rag.IngestJob
}

func newMemJobs(ids ...string) *memJobs {
	s := &memJobs{jobs: make(map[string]rag.IngestJob)}
	for _, id := range ids {
		s.jobs[id] = rag.IngestJob{ID: id, Status: rag.JobStatusPending}
	}
	return s
}

func (s *memJobs) Create(_ context.Context, url string) (rag.IngestJob, error) {
	return rag.IngestJob{}, errors.New("not used")
}

func (s *memJobs) Get(_ context.Context, id string) (rag.IngestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return rag.IngestJob{}, rag.ErrNotFound
	}
	return job, nil
}

func (s *memJobs) Update(_ context.Context, id string, update rag.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return rag.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = update.Status
	job.ChunksIngested = update.ChunksIngested
	job.Failed = update.Failed
	job.ErrorText = update.ErrorText
	s.jobs[id] = job
	return nil
}

func (s *memJobs) Sweep(context.Context) int { return 0 }

type stubExecutor struct {
	mu      sync.Mutex
	report  rag.IngestReport
	err     error
	gotJobs []string
}

func (e *stubExecutor) ExecuteJob(_ context.Context, jobID string, _ []rag.PlanStep) (rag.IngestReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gotJobs = append(e.gotJobs, jobID)
	return e.report, e.err
}

func waitForStatus(t *testing.T, jobs *memJobs, id string, want rag.JobStatus) rag.IngestJob {
	t.Helper()
	var job rag.IngestJob
	require.Eventually(t, func() bool {
		var err error
		job, err = jobs.Get(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestWorkerCompletesJob(t *testing.T) {
	t.Parallel()

	queue := newChanQueue(4)
	jobs := newMemJobs("job-1")
	exec := &stubExecutor{report: rag.IngestReport{ChunksIngested: 42}}
	w := New(queue, jobs, exec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, rag.QueueItem{JobID: "job-1", URL: "https://example.com"}))

	job := waitForStatus(t, jobs, "job-1", rag.JobStatusDone)
	require.Equal(t, 42, job.ChunksIngested)
	require.Empty(t, job.Failed)
	require.Empty(t, job.ErrorText)
}

func TestWorkerCapturesFatalErrorIntoJob(t *testing.T) {
	t.Parallel()

	queue := newChanQueue(4)
	jobs := newMemJobs("job-2")
	exec := &stubExecutor{err: rag.NewCollaboratorUnavailable("ingestion", errors.New("refused"))}
	w := New(queue, jobs, exec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, rag.QueueItem{JobID: "job-2"}))

	job := waitForStatus(t, jobs, "job-2", rag.JobStatusError)
	require.Contains(t, job.ErrorText, "ingestion collaborator unavailable")
	require.Zero(t, job.ChunksIngested)
}

func TestWorkerKeepsPartialFailuresOnDone(t *testing.T) {
	t.Parallel()

	queue := newChanQueue(4)
	jobs := newMemJobs("job-3")
	exec := &stubExecutor{report: rag.IngestReport{
		ChunksIngested: 7,
		Failed:         []string{"https://example.com/broken: timeout"},
	}}
	w := New(queue, jobs, exec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, rag.QueueItem{JobID: "job-3"}))

	job := waitForStatus(t, jobs, "job-3", rag.JobStatusDone)
	require.Equal(t, 7, job.ChunksIngested)
	require.Len(t, job.Failed, 1)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	queue := newChanQueue(1)
	w := New(queue, newMemJobs(), &stubExecutor{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestWorkerSkipsUnknownJob(t *testing.T) {
	t.Parallel()

	queue := newChanQueue(4)
	jobs := newMemJobs("job-known")
	exec := &stubExecutor{report: rag.IngestReport{ChunksIngested: 1}}
	w := New(queue, jobs, exec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, rag.QueueItem{JobID: "job-ghost"}))
	require.NoError(t, queue.Enqueue(ctx, rag.QueueItem{JobID: "job-known"}))

	waitForStatus(t, jobs, "job-known", rag.JobStatusDone)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	require.Equal(t, []string{"job-known"}, exec.gotJobs)
}

// Package memory provides the in-memory ingest job registry.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

// Store keeps ingest jobs in memory, keyed by identifier. Records are
// value types: readers always receive a copy and never observe a
// partially-updated job. Terminal jobs are evicted once their retention
// window elapses, both by Sweep and lazily on Get.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]rag.IngestJob
	idGen     rag.IDGenerator
	clock     rag.Clock
	retention time.Duration
	logger    *zap.Logger
}

// New constructs a Store with the given retention window.
func New(idGen rag.IDGenerator, clock rag.Clock, retention time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		jobs:      make(map[string]rag.IngestJob),
		idGen:     idGen,
		clock:     clock,
		retention: retention,
		logger:    logger,
	}
}

// Create registers a new pending job for url and returns its record.
func (s *Store) Create(_ context.Context, url string) (rag.IngestJob, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return rag.IngestJob{}, fmt.Errorf("generate job id: %w", err)
	}
	job := rag.IngestJob{
		ID:        id,
		URL:       url,
		Status:    rag.JobStatusPending,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = job
	return job, nil
}

// Get returns the job by id, or rag.ErrNotFound for unknown ids and for
// terminal jobs whose retention window has already elapsed.
func (s *Store) Get(_ context.Context, jobID string) (rag.IngestJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok || s.expired(job, s.clock.Now()) {
		return rag.IngestJob{}, rag.ErrNotFound
	}
	return job, nil
}

// Update applies a status transition. Transitions are monotone:
// pending -> running -> done|error. An update against an already-terminal
// job is a logged no-op, never an error.
func (s *Store) Update(_ context.Context, jobID string, update rag.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return rag.ErrNotFound
	}
	if job.Status.Terminal() {
		s.logger.Warn("ignoring update to terminal job",
			zap.String("job_id", jobID),
			zap.String("status", string(job.Status)),
			zap.String("requested", string(update.Status)),
		)
		return nil
	}
	if !validTransition(job.Status, update.Status) {
		s.logger.Warn("ignoring invalid status transition",
			zap.String("job_id", jobID),
			zap.String("from", string(job.Status)),
			zap.String("to", string(update.Status)),
		)
		return nil
	}

	job.Status = update.Status
	switch update.Status {
	case rag.JobStatusDone:
		job.ChunksIngested = update.ChunksIngested
		job.Failed = append([]string(nil), update.Failed...)
		job.ErrorText = ""
	case rag.JobStatusError:
		job.ChunksIngested = 0
		job.ErrorText = update.ErrorText
	}
	if update.Status.Terminal() {
		now := s.clock.Now()
		job.FinishedAt = &now
	}
	s.jobs[jobID] = job
	return nil
}

// Sweep evicts terminal jobs past retention and returns how many were
// removed. Pending and running jobs are never touched.
func (s *Store) Sweep(_ context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if s.expired(job, now) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept expired jobs", zap.Int("removed", removed))
	}
	return removed
}

// Len reports the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) expired(job rag.IngestJob, now time.Time) bool {
	return job.FinishedAt != nil && now.After(job.FinishedAt.Add(s.retention))
}

// validTransition encodes the job state machine. No transition skips
// running and nothing leaves a terminal state.
func validTransition(from, to rag.JobStatus) bool {
	switch from {
	case rag.JobStatusPending:
		return to == rag.JobStatusRunning
	case rag.JobStatusRunning:
		return to == rag.JobStatusDone || to == rag.JobStatusError
	default:
		return false
	}
}

package rag

import (
	"context"
	"time"
)

// Crawler fetches one URL and returns the rendered page.
type Crawler interface {
	Crawl(ctx context.Context, url string) (CrawlResult, error)
}

// Mapper converts a crawled page into a structured tag hierarchy.
type Mapper interface {
	Map(result CrawlResult) (TagDocument, error)
}

// Ingestor chunks, embeds, and indexes mapped documents, returning the
// number of chunks written.
type Ingestor interface {
	Ingest(ctx context.Context, collection string, docs []TagDocument) (int, error)
}

// Retriever executes hybrid retrieval with the supplied effective weights.
type Retriever interface {
	Retrieve(ctx context.Context, collection string, query string, weights RetrievalWeights) ([]RetrievedChunk, error)
}

// Synthesizer produces an answer from a query plus retrieved context.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, chunks []RetrievedChunk) (string, error)
}

// Summarizer is an optional post-ingest collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, collection string) error
}

// Clusterer is an optional post-ingest collaborator.
type Clusterer interface {
	Cluster(ctx context.Context, collection string) error
}

// GraphProbe reports live reachability of the optional graph backend.
type GraphProbe interface {
	Reachable(ctx context.Context) bool
}

// JobUpdate carries the fields applied by a job store status transition.
type JobUpdate struct {
	Status         JobStatus
	ChunksIngested int
	Failed         []string
	ErrorText      string
}

// JobStore owns ingest job records for their whole lifetime. Records are
// created, mutated, and evicted only through it.
type JobStore interface {
	Create(ctx context.Context, url string) (IngestJob, error)
	Get(ctx context.Context, jobID string) (IngestJob, error)
	Update(ctx context.Context, jobID string, update JobUpdate) error
	Sweep(ctx context.Context) int
}

// PlanExecutor runs an ordered plan against the collaborators.
type PlanExecutor interface {
	Execute(ctx context.Context, steps []PlanStep) (IngestReport, error)
}

// Queue provides enqueue/dequeue semantics for background ingest work.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}

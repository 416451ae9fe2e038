// Package rag defines core types shared across subsystems.
package rag

import "time"

// JobStatus represents the lifecycle state of an ingest job.
type JobStatus string

// Job status values held in the job store.
const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether s permits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// IngestJob is the record kept for each asynchronous ingestion request.
// ChunksIngested is meaningful only once Status is done; ErrorText is set
// only when Status is error. Failed may be non-empty on a done job
// (partial success across sub-pages).
type IngestJob struct {
	ID             string     `json:"job_id"`
	URL            string     `json:"url"`
	Status         JobStatus  `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ChunksIngested int        `json:"chunks_ingested"`
	Failed         []string   `json:"failed,omitempty"`
	ErrorText      string     `json:"error,omitempty"`
}

// IngestReport is the synchronous-mode return value: the same outcome as a
// job record without identity or lifecycle fields.
type IngestReport struct {
	ChunksIngested int      `json:"chunks_ingested"`
	Failed         []string `json:"failed,omitempty"`
}

// StepKind tags one unit of orchestrated work.
type StepKind string

// Plan step kinds in dependency order: ingest always follows crawl+map.
const (
	StepCrawl     StepKind = "crawl"
	StepMap       StepKind = "map"
	StepIngest    StepKind = "ingest"
	StepSummarize StepKind = "summarize"
	StepCluster   StepKind = "cluster"
)

// PlanStep is one unit of orchestrated work produced by the planner.
type PlanStep struct {
	Kind StepKind `json:"kind"`
	URL  string   `json:"url"`
	// FollowLinks marks a crawl step that expands discovered same-site
	// links at execution time, bounded by MaxPages.
	FollowLinks bool `json:"follow_links,omitempty"`
	MaxPages    int  `json:"max_pages,omitempty"`
}

// RetrievalWeights is the (vector, graph, lexical) triple applied to a
// query. The resolver guarantees the triple sums to 1.0 before use;
// declared configuration weights carry no such guarantee.
type RetrievalWeights struct {
	Vector  float64 `json:"vector"`
	Graph   float64 `json:"graph"`
	Lexical float64 `json:"lexical"`
}

// Sum returns the total mass of the triple.
func (w RetrievalWeights) Sum() float64 {
	return w.Vector + w.Graph + w.Lexical
}

// RetrievedChunk is one unit of context returned by the retriever.
type RetrievedChunk struct {
	DocID   string  `json:"doc_id"`
	URL     string  `json:"url"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
	Section string  `json:"section,omitempty"`
}

// Answer is the result of a query: the synthesized (or raw) answer plus
// the retrieved context and the effective weights it was produced with.
type Answer struct {
	Text    string           `json:"answer"`
	Results []RetrievedChunk `json:"results"`
	Weights RetrievalWeights `json:"weights"`
}

// CrawlResult is the rendered output of the crawl collaborator for one URL.
type CrawlResult struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	HTML      string    `json:"html"`
	Links     []string  `json:"links,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Rendered  bool      `json:"rendered,omitempty"`
}

// TagKind classifies one node of a structured tag hierarchy.
type TagKind string

// Tag kinds emitted by the mapper.
const (
	TagTitle     TagKind = "title"
	TagSection   TagKind = "section"
	TagParagraph TagKind = "paragraph"
	TagList      TagKind = "list"
	TagLink      TagKind = "link"
)

// DocTag is one node of the mapped tag hierarchy. Level is the heading
// depth for section tags and zero otherwise.
type DocTag struct {
	Kind  TagKind `json:"kind"`
	Text  string  `json:"text"`
	Level int     `json:"level,omitempty"`
	Href  string  `json:"href,omitempty"`
}

// TagDocument is the structured form of one crawled page, ready for the
// ingestion collaborator.
type TagDocument struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	ContentHash string   `json:"content_hash"`
	Tags        []DocTag `json:"tags"`
}

// QueueItem wraps a planned ingest job ready for background execution.
// Submitted is the enqueue time; workers report the queue wait on dequeue.
type QueueItem struct {
	JobID     string
	URL       string
	Steps     []PlanStep
	Submitted time.Time
}

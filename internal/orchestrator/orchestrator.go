// Package orchestrator coordinates the ingest and query pipelines. It is
// the only component that talks to the collaborators directly; everything
// above it (HTTP handlers, CLI, workers) goes through its three
// operations: Ingest, IngestAsync, and Query.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/metrics"
	"github.com/contextprime/crawlprime/internal/planner"
	"github.com/contextprime/crawlprime/internal/rag"
	"github.com/contextprime/crawlprime/internal/weights"
)

// ArtifactSink persists pipeline intermediates. Optional; a nil sink
// disables artifact capture.
type ArtifactSink interface {
	SaveCrawl(ctx context.Context, jobID string, result rag.CrawlResult) (string, error)
	SaveDocument(ctx context.Context, jobID string, doc rag.TagDocument) (string, error)
}

// Config carries the orchestration knobs resolved from configuration.
type Config struct {
	Collection      string
	Weights         rag.RetrievalWeights
	EnableSynthesis bool
	PlanMode        planner.Mode
	MaxPages        int
}

// Params wires the orchestrator's collaborators. Summarizer, Clusterer,
// and Sink are optional; everything else is required.
type Params struct {
	Crawler     rag.Crawler
	Mapper      rag.Mapper
	Ingestor    rag.Ingestor
	Retriever   rag.Retriever
	Synthesizer rag.Synthesizer
	Summarizer  rag.Summarizer
	Clusterer   rag.Clusterer
	Probe       rag.GraphProbe
	Jobs        rag.JobStore
	Queue       rag.Queue
	Sink        ArtifactSink
	Clock       rag.Clock
	IDGen       rag.IDGenerator
	Logger      *zap.Logger
	Config      Config
}

// Orchestrator implements the pipeline operations and rag.PlanExecutor.
type Orchestrator struct {
	crawler     rag.Crawler
	mapper      rag.Mapper
	ingestor    rag.Ingestor
	retriever   rag.Retriever
	synthesizer rag.Synthesizer
	summarizer  rag.Summarizer
	clusterer   rag.Clusterer
	probe       rag.GraphProbe
	jobs        rag.JobStore
	queue       rag.Queue
	sink        ArtifactSink
	clock       rag.Clock
	idGen       rag.IDGenerator
	logger      *zap.Logger
	cfg         Config
}

// New builds an Orchestrator from its collaborators.
func New(p Params) *Orchestrator {
	return &Orchestrator{
		crawler:     p.Crawler,
		mapper:      p.Mapper,
		ingestor:    p.Ingestor,
		retriever:   p.Retriever,
		synthesizer: p.Synthesizer,
		summarizer:  p.Summarizer,
		clusterer:   p.Clusterer,
		probe:       p.Probe,
		jobs:        p.Jobs,
		queue:       p.Queue,
		sink:        p.Sink,
		clock:       p.Clock,
		idGen:       p.IDGen,
		logger:      p.Logger,
		cfg:         p.Config,
	}
}

// plan builds the step sequence for rawURL, surfacing unusable URLs as a
// validation failure before any collaborator is touched.
func (o *Orchestrator) plan(rawURL string) ([]rag.PlanStep, error) {
	steps := planner.Build(rawURL, planner.Options{
		Mode:          o.cfg.PlanMode,
		MaxPages:      o.cfg.MaxPages,
		HasSummarizer: o.summarizer != nil,
		HasClusterer:  o.clusterer != nil,
	})
	if len(steps) == 0 {
		return nil, rag.NewValidationError("url", fmt.Sprintf("not a crawlable http(s) URL: %q", rawURL))
	}
	return steps, nil
}

// Ingest runs the full plan inline and returns once all steps complete or
// one fails fatally. Sub-page failures are folded into the report.
func (o *Orchestrator) Ingest(ctx context.Context, rawURL string) (rag.IngestReport, error) {
	steps, err := o.plan(rawURL)
	if err != nil {
		return rag.IngestReport{}, err
	}
	runID, err := o.idGen.NewID()
	if err != nil {
		return rag.IngestReport{}, fmt.Errorf("generate run id: %w", err)
	}
	return o.executePlan(ctx, runID, steps)
}

// IngestAsync validates the URL, creates a pending job, and enqueues the
// plan for background execution. The caller polls the job store for
// progress.
func (o *Orchestrator) IngestAsync(ctx context.Context, rawURL string) (string, error) {
	steps, err := o.plan(rawURL)
	if err != nil {
		return "", err
	}

	job, err := o.jobs.Create(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	item := rag.QueueItem{
		JobID:     job.ID,
		URL:       rawURL,
		Steps:     steps,
		Submitted: o.clock.Now(),
	}
	if err := o.queue.Enqueue(ctx, item); err != nil {
		// The job would otherwise stay pending forever; drive it to a
		// terminal state so retention can reclaim it.
		o.failJob(job.ID, fmt.Sprintf("enqueue: %v", err))
		return "", fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return job.ID, nil
}

func (o *Orchestrator) failJob(jobID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.jobs.Update(ctx, jobID, rag.JobUpdate{Status: rag.JobStatusRunning}); err != nil {
		o.logger.Warn("job transition failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := o.jobs.Update(ctx, jobID, rag.JobUpdate{Status: rag.JobStatusError, ErrorText: reason}); err != nil {
		o.logger.Warn("job transition failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// Job returns the stored record for jobID.
func (o *Orchestrator) Job(ctx context.Context, jobID string) (rag.IngestJob, error) {
	return o.jobs.Get(ctx, jobID)
}

// Query resolves effective weights against live graph reachability, runs
// hybrid retrieval, and synthesizes an answer when synthesis is enabled.
func (o *Orchestrator) Query(ctx context.Context, text string) (rag.Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rag.Answer{}, rag.NewValidationError("query", "must not be empty")
	}

	start := o.clock.Now()

	reachable := o.probe.Reachable(ctx)
	metrics.ObserveGraphProbe(reachable)
	effective := weights.Resolve(o.cfg.Weights, reachable)
	if !reachable {
		o.logger.Info("graph backend unreachable, redistributing weight",
			zap.Float64("vector", effective.Vector),
			zap.Float64("lexical", effective.Lexical),
		)
	}

	chunks, err := o.retriever.Retrieve(ctx, o.cfg.Collection, text, effective)
	if err != nil {
		return rag.Answer{}, err
	}

	answer := rag.Answer{Results: chunks, Weights: effective}
	if o.cfg.EnableSynthesis && o.synthesizer != nil {
		answer.Text, err = o.synthesizer.Synthesize(ctx, text, chunks)
		if err != nil {
			return rag.Answer{}, err
		}
	} else {
		answer.Text = joinChunks(chunks)
	}

	metrics.ObserveQuery(o.clock.Now().Sub(start))
	return answer, nil
}

// joinChunks is the synthesis-disabled fallback: raw context joined in
// retrieval order.
func joinChunks(chunks []rag.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Execute implements rag.PlanExecutor for callers that carry no job
// identity of their own.
func (o *Orchestrator) Execute(ctx context.Context, steps []rag.PlanStep) (rag.IngestReport, error) {
	runID, err := o.idGen.NewID()
	if err != nil {
		return rag.IngestReport{}, fmt.Errorf("generate run id: %w", err)
	}
	return o.executePlan(ctx, runID, steps)
}

// ExecuteJob runs steps on behalf of jobID; artifacts group under the job.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string, steps []rag.PlanStep) (rag.IngestReport, error) {
	return o.executePlan(ctx, jobID, steps)
}

// executePlan walks the steps in order, threading crawl output into the
// mapper and mapped documents into one batched ingest. Per-page crawl and
// map failures accumulate; a required collaborator outage aborts.
func (o *Orchestrator) executePlan(ctx context.Context, runID string, steps []rag.PlanStep) (rag.IngestReport, error) {
	var (
		report rag.IngestReport
		pages  []rag.CrawlResult
		docs   []rag.TagDocument
	)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch step.Kind {
		case rag.StepCrawl:
			pages = o.crawlStep(ctx, runID, step, &report)
		case rag.StepMap:
			docs = o.mapStep(ctx, runID, pages, &report)
		case rag.StepIngest:
			if len(docs) == 0 {
				o.logger.Warn("nothing to ingest", zap.String("run_id", runID), zap.String("url", step.URL))
				continue
			}
			n, err := o.ingestor.Ingest(ctx, o.cfg.Collection, docs)
			if err != nil {
				return report, err
			}
			report.ChunksIngested = n
		case rag.StepSummarize:
			if err := o.summarizer.Summarize(ctx, o.cfg.Collection); err != nil {
				o.logger.Warn("summarize degraded", zap.String("run_id", runID), zap.Error(err))
			}
		case rag.StepCluster:
			if err := o.clusterer.Cluster(ctx, o.cfg.Collection); err != nil {
				o.logger.Warn("cluster degraded", zap.String("run_id", runID), zap.Error(err))
			}
		default:
			return report, fmt.Errorf("unknown plan step %q", step.Kind)
		}
	}
	return report, nil
}

// crawlStep fetches the step URL and, for site crawls, expands same-host
// discovered links breadth-first up to the page budget. Every page that
// fails to fetch lands in the report's failure list.
func (o *Orchestrator) crawlStep(ctx context.Context, runID string, step rag.PlanStep, report *rag.IngestReport) []rag.CrawlResult {
	budget := step.MaxPages
	if !step.FollowLinks || budget <= 0 {
		budget = 1
	}

	visited := map[string]struct{}{step.URL: {}}
	frontier := []string{step.URL}
	var pages []rag.CrawlResult

	for len(frontier) > 0 && len(pages) < budget {
		if err := ctx.Err(); err != nil {
			return pages
		}
		target := frontier[0]
		frontier = frontier[1:]

		result, err := o.crawler.Crawl(ctx, target)
		if err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("%s: %v", target, err))
			continue
		}
		pages = append(pages, result)
		o.saveCrawlArtifact(ctx, runID, result)

		if step.FollowLinks {
			for _, link := range sameHostLinks(step.URL, result.Links) {
				if _, seen := visited[link]; seen {
					continue
				}
				visited[link] = struct{}{}
				frontier = append(frontier, link)
			}
		}
	}
	return pages
}

// mapStep converts crawled pages into tag documents. A page that fails to
// map is a partial failure, not a fatal one.
func (o *Orchestrator) mapStep(ctx context.Context, runID string, pages []rag.CrawlResult, report *rag.IngestReport) []rag.TagDocument {
	docs := make([]rag.TagDocument, 0, len(pages))
	for _, page := range pages {
		doc, err := o.mapper.Map(page)
		if err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("%s: %v", page.URL, err))
			continue
		}
		docs = append(docs, doc)
		o.saveDocArtifact(ctx, runID, doc)
	}
	return docs
}

func (o *Orchestrator) saveCrawlArtifact(ctx context.Context, runID string, result rag.CrawlResult) {
	if o.sink == nil {
		return
	}
	if _, err := o.sink.SaveCrawl(ctx, runID, result); err != nil {
		o.logger.Warn("crawl artifact not saved", zap.String("url", result.URL), zap.Error(err))
	}
}

func (o *Orchestrator) saveDocArtifact(ctx context.Context, runID string, doc rag.TagDocument) {
	if o.sink == nil {
		return
	}
	if _, err := o.sink.SaveDocument(ctx, runID, doc); err != nil {
		o.logger.Warn("doc artifact not saved", zap.String("url", doc.URL), zap.Error(err))
	}
}

// sameHostLinks filters discovered links to the root URL's host.
func sameHostLinks(root string, links []string) []string {
	rootURL, err := url.Parse(root)
	if err != nil {
		return nil
	}
	var out []string
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if strings.EqualFold(u.Host, rootURL.Host) {
			out = append(out, link)
		}
	}
	return out
}

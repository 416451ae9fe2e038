package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/artifacts"
	clocksys "github.com/contextprime/crawlprime/internal/clock/system"
	"github.com/contextprime/crawlprime/internal/collab/contextprime"
	"github.com/contextprime/crawlprime/internal/collab/doctags"
	"github.com/contextprime/crawlprime/internal/collab/graphprobe"
	"github.com/contextprime/crawlprime/internal/collab/webcrawl"
	"github.com/contextprime/crawlprime/internal/config"
	iduuid "github.com/contextprime/crawlprime/internal/id/uuid"
	jobmem "github.com/contextprime/crawlprime/internal/jobstore/memory"
	"github.com/contextprime/crawlprime/internal/logging"
	"github.com/contextprime/crawlprime/internal/orchestrator"
	"github.com/contextprime/crawlprime/internal/planner"
	queuemem "github.com/contextprime/crawlprime/internal/queue/memory"
	"github.com/contextprime/crawlprime/internal/rag"
)

// pipeline bundles the wired components a command needs.
type pipeline struct {
	orch    *orchestrator.Orchestrator
	jobs    *jobmem.Store
	queue   *queuemem.Queue
	crawler *webcrawl.Crawler
	logger  *zap.Logger
}

func (p *pipeline) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.crawler.Close(ctx); err != nil {
		p.logger.Warn("crawler close failed", zap.Error(err))
	}
	_ = p.logger.Sync()
}

// buildPipeline constructs the full collaborator graph from configuration.
// artifactPath roots the on-disk artifact sink; empty disables it.
func buildPipeline(cfg config.Config, artifactPath string) (*pipeline, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	clock := clocksys.New()
	idGen := iduuid.New()

	crawler, err := webcrawl.New(webcrawl.Config{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second,
		Headless: webcrawl.HeadlessConfig{
			Enabled:     cfg.Crawl.Headless.Enabled,
			MaxParallel: cfg.Crawl.Headless.MaxParallel,
			NavTimeout:  time.Duration(cfg.Crawl.Headless.NavTimeoutSec) * time.Second,
		},
	}, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("build crawler: %w", err)
	}

	client := contextprime.New(contextprime.Config{
		BaseURL: cfg.Pipeline.BaseURL,
		Timeout: time.Duration(cfg.Pipeline.TimeoutSeconds) * time.Second,
	}, logger)

	var sink orchestrator.ArtifactSink
	if artifactPath != "" {
		fsSink, err := artifacts.NewSink(artifactPath, logger)
		if err != nil {
			return nil, fmt.Errorf("build artifact sink: %w", err)
		}
		sink = fsSink
	}

	var summarizer rag.Summarizer
	if cfg.PostIngest.Summarize {
		summarizer = client
	}
	var clusterer rag.Clusterer
	if cfg.PostIngest.Cluster {
		clusterer = client
	}

	jobs := jobmem.New(idGen, clock, cfg.Jobs.Retention, logger)
	queue := queuemem.New(cfg.Jobs.QueueDepth)

	orch := orchestrator.New(orchestrator.Params{
		Crawler:     crawler,
		Mapper:      doctags.New(),
		Ingestor:    client,
		Retriever:   client,
		Synthesizer: client,
		Summarizer:  summarizer,
		Clusterer:   clusterer,
		Probe:       graphprobe.New(cfg.GraphAddr(), cfg.ProbeTimeout(), logger),
		Jobs:        jobs,
		Queue:       queue,
		Sink:        sink,
		Clock:       clock,
		IDGen:       idGen,
		Logger:      logger,
		Config: orchestrator.Config{
			Collection: cfg.Collection,
			Weights: rag.RetrievalWeights{
				Vector:  cfg.Retrieval.VectorWeight,
				Graph:   cfg.Retrieval.GraphWeight,
				Lexical: cfg.Retrieval.LexicalWeight,
			},
			EnableSynthesis: cfg.Query.EnableSynthesis,
			PlanMode:        planner.Mode(cfg.Crawl.Mode),
			MaxPages:        cfg.Crawl.MaxPages,
		},
	})

	return &pipeline{
		orch:    orch,
		jobs:    jobs,
		queue:   queue,
		crawler: crawler,
		logger:  logger,
	}, nil
}

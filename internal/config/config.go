// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Collection string           `mapstructure:"collection"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Query      QueryConfig      `mapstructure:"query"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	PostIngest PostIngestConfig `mapstructure:"post_ingest"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// VectorConfig locates the vector store backend.
type VectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// GraphConfig locates the optional graph backend. Unreachability forces the
// graph retrieval weight to zero rather than failing queries.
type GraphConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	ProbeTimeoutMs int    `mapstructure:"probe_timeout_ms"`
}

// RetrievalConfig holds the declared retrieval weights, pre-normalization.
type RetrievalConfig struct {
	VectorWeight  float64 `mapstructure:"vector_weight"`
	GraphWeight   float64 `mapstructure:"graph_weight"`
	LexicalWeight float64 `mapstructure:"lexical_weight"`
}

// QueryConfig gates the synthesis stage of query handling.
type QueryConfig struct {
	EnableSynthesis bool `mapstructure:"enable_synthesis"`
}

// PipelineConfig locates the remote ingestion/retrieval/synthesis service.
type PipelineConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CrawlConfig governs the crawl collaborator.
type CrawlConfig struct {
	UserAgent      string         `mapstructure:"user_agent"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
	MaxPages       int            `mapstructure:"max_pages"`
	Mode           string         `mapstructure:"mode"`
	Headless       HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures optional headless rendering of script-heavy pages.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// JobsConfig controls the async ingest machinery.
type JobsConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	QueueDepth    int           `mapstructure:"queue_depth"`
	Concurrency   int           `mapstructure:"concurrency"`
}

// StorageConfig roots the auxiliary on-disk artifact directory.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PostIngestConfig enables the optional post-processing collaborators.
type PostIngestConfig struct {
	Summarize bool `mapstructure:"summarize"`
	Cluster   bool `mapstructure:"cluster"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLPRIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8001)
	v.SetDefault("collection", "crawlprime_default")
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6333)
	v.SetDefault("graph.host", "localhost")
	v.SetDefault("graph.port", 7687)
	v.SetDefault("graph.user", "neo4j")
	v.SetDefault("graph.password", "password")
	v.SetDefault("graph.probe_timeout_ms", 500)
	v.SetDefault("retrieval.vector_weight", 0.6)
	v.SetDefault("retrieval.graph_weight", 0.3)
	v.SetDefault("retrieval.lexical_weight", 0.1)
	v.SetDefault("query.enable_synthesis", true)
	v.SetDefault("pipeline.base_url", "http://localhost:8100")
	v.SetDefault("pipeline.timeout_seconds", 60)
	v.SetDefault("crawl.user_agent", "crawlprime-bot/1.0")
	v.SetDefault("crawl.timeout_seconds", 15)
	v.SetDefault("crawl.max_pages", 25)
	v.SetDefault("crawl.mode", "auto")
	v.SetDefault("crawl.headless.enabled", false)
	v.SetDefault("crawl.headless.max_parallel", 1)
	v.SetDefault("crawl.headless.nav_timeout_seconds", 25)
	v.SetDefault("jobs.retention", time.Hour)
	v.SetDefault("jobs.sweep_interval", time.Minute)
	v.SetDefault("jobs.queue_depth", 64)
	v.SetDefault("jobs.concurrency", 4)
	v.SetDefault("storage.path", "data/crawlprime")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Retrieval.VectorWeight < 0 || c.Retrieval.GraphWeight < 0 || c.Retrieval.LexicalWeight < 0 {
		return fmt.Errorf("retrieval weights must be non-negative")
	}
	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("jobs.retention must be > 0")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be > 0")
	}
	if c.Jobs.QueueDepth <= 0 {
		return fmt.Errorf("jobs.queue_depth must be > 0")
	}
	if c.Crawl.Headless.Enabled && c.Crawl.Headless.MaxParallel <= 0 {
		return fmt.Errorf("crawl.headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Pipeline.BaseURL == "" {
		return fmt.Errorf("pipeline.base_url must be set")
	}
	return nil
}

// ProbeTimeout converts the graph probe timeout into a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Graph.ProbeTimeoutMs) * time.Millisecond
}

// GraphAddr returns the host:port of the graph backend's bolt endpoint.
func (c Config) GraphAddr() string {
	return fmt.Sprintf("%s:%d", c.Graph.Host, c.Graph.Port)
}

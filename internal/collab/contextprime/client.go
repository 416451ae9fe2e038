// Package contextprime holds HTTP clients for the remote pipeline stages:
// ingestion, hybrid retrieval, answer synthesis, and the optional
// post-processing endpoints. The orchestration core only sees the rag
// interfaces these clients implement.
package contextprime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

// Client talks to the pipeline service over JSON HTTP. A transport
// failure or a 5xx response is surfaced as a collaborator outage; the
// caller decides whether the stage was required.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Config controls client construction.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type ingestRequest struct {
	Collection string            `json:"collection"`
	Documents  []rag.TagDocument `json:"documents"`
}

type ingestResponse struct {
	ChunksIngested int `json:"chunks_ingested"`
}

// Ingest submits mapped documents for chunking, embedding, and indexing.
func (c *Client) Ingest(ctx context.Context, collection string, docs []rag.TagDocument) (int, error) {
	var resp ingestResponse
	err := c.post(ctx, "ingestion", "/ingest/documents", ingestRequest{
		Collection: collection,
		Documents:  docs,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ChunksIngested, nil
}

type retrieveRequest struct {
	Collection string               `json:"collection"`
	Query      string               `json:"query"`
	Weights    rag.RetrievalWeights `json:"weights"`
}

type retrieveResponse struct {
	Results []rag.RetrievedChunk `json:"results"`
}

// Retrieve runs hybrid retrieval with the supplied effective weights.
func (c *Client) Retrieve(
	ctx context.Context,
	collection string,
	query string,
	weights rag.RetrievalWeights,
) ([]rag.RetrievedChunk, error) {
	var resp retrieveResponse
	err := c.post(ctx, "retrieval", "/retrieve", retrieveRequest{
		Collection: collection,
		Query:      query,
		Weights:    weights,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

type synthesizeRequest struct {
	Query   string               `json:"query"`
	Results []rag.RetrievedChunk `json:"results"`
}

type synthesizeResponse struct {
	Answer string `json:"answer"`
}

// Synthesize produces an LLM answer from the retrieved context.
func (c *Client) Synthesize(ctx context.Context, query string, chunks []rag.RetrievedChunk) (string, error) {
	var resp synthesizeResponse
	err := c.post(ctx, "synthesis", "/synthesize", synthesizeRequest{
		Query:   query,
		Results: chunks,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

type collectionRequest struct {
	Collection string `json:"collection"`
}

// Summarize triggers hierarchical summarization for the collection.
func (c *Client) Summarize(ctx context.Context, collection string) error {
	return c.post(ctx, "summarization", "/summarize", collectionRequest{Collection: collection}, nil)
}

// Cluster triggers community clustering for the collection.
func (c *Client) Cluster(ctx context.Context, collection string) error {
	return c.post(ctx, "clustering", "/cluster", collectionRequest{Collection: collection}, nil)
}

func (c *Client) post(ctx context.Context, stage, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", stage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", stage, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return rag.NewCollaboratorUnavailable(stage, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return rag.NewCollaboratorUnavailable(stage, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s rejected request: status %d: %s", stage, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", stage, err)
	}
	return nil
}

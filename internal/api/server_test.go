package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

type stubPipeline struct {
	jobID     string
	ingestErr error
	answer    rag.Answer
	queryErr  error
	job       rag.IngestJob
	jobErr    error

	gotURL   string
	gotQuery string
}

func (p *stubPipeline) IngestAsync(_ context.Context, url string) (string, error) {
	p.gotURL = url
	return p.jobID, p.ingestErr
}

func (p *stubPipeline) Query(_ context.Context, text string) (rag.Answer, error) {
	p.gotQuery = text
	return p.answer, p.queryErr
}

func (p *stubPipeline) Job(_ context.Context, _ string) (rag.IngestJob, error) {
	return p.job, p.jobErr
}

func newTestServer(p Pipeline) *httptest.Server {
	return httptest.NewServer(NewServer(p, zap.NewNop()).Handler())
}

func postJSON(t *testing.T, url string, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestSubmitIngestAccepted(t *testing.T) {
	t.Parallel()

	p := &stubPipeline{jobID: "job-1"}
	srv := newTestServer(p)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/ingest", `{"url":"https://example.com/docs"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Equal(t, "job-1", body["job_id"])
	require.Equal(t, "pending", body["status"])
	require.Equal(t, "https://example.com/docs", body["url"])
	require.Equal(t, "https://example.com/docs", p.gotURL)
}

func TestSubmitIngestRejectsBadInput(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubPipeline{jobID: "x"})
	defer srv.Close()

	for _, payload := range []string{`{`, `{"url":""}`, `{"url":"   "}`} {
		resp := postJSON(t, srv.URL+"/ingest", payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, payload)
		_ = resp.Body.Close()
	}
}

func TestSubmitIngestValidationError(t *testing.T) {
	t.Parallel()

	p := &stubPipeline{ingestErr: rag.NewValidationError("url", "not crawlable")}
	srv := newTestServer(p)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/ingest", `{"url":"nope"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.Contains(t, body["error"], "invalid url")
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	p := &stubPipeline{job: rag.IngestJob{
		ID:             "job-9",
		URL:            "https://example.com",
		Status:         rag.JobStatusDone,
		ChunksIngested: 42,
	}}
	srv := newTestServer(p)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ingest/job-9")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job rag.IngestJob
	decodeBody(t, resp, &job)
	require.Equal(t, "job-9", job.ID)
	require.Equal(t, rag.JobStatusDone, job.Status)
	require.Equal(t, 42, job.ChunksIngested)
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubPipeline{jobErr: rag.ErrNotFound})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ingest/ghost")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	p := &stubPipeline{answer: rag.Answer{
		Text:    "the answer",
		Results: []rag.RetrievedChunk{{Text: "ctx", Score: 0.9}},
		Weights: rag.RetrievalWeights{Vector: 0.6, Graph: 0.3, Lexical: 0.1},
	}}
	srv := newTestServer(p)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/query", `{"query":"what is crawlprime?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer rag.Answer
	decodeBody(t, resp, &answer)
	require.Equal(t, "the answer", answer.Text)
	require.Len(t, answer.Results, 1)
	require.Equal(t, "what is crawlprime?", p.gotQuery)
}

func TestQueryErrorTranslation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", rag.NewValidationError("query", "must not be empty"), http.StatusBadRequest},
		{"unavailable", rag.NewCollaboratorUnavailable("retrieval", errors.New("refused")), http.StatusBadGateway},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(&stubPipeline{queryErr: tc.err})
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/query", `{"query":"q"}`)
			defer func() { _ = resp.Body.Close() }()
			require.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubPipeline{})
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

package artifacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

func TestSaveCrawlWritesSnapshotAndMeta(t *testing.T) {
	t.Parallel()

	sink, err := NewSink(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	result := rag.CrawlResult{
		URL:       "https://example.com/docs/intro",
		Title:     "Intro",
		HTML:      "<html><body>intro</body></html>",
		Links:     []string{"https://example.com/docs/next"},
		FetchedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	htmlPath, err := sink.SaveCrawl(context.Background(), "job-1", result)
	require.NoError(t, err)

	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	require.Equal(t, result.HTML, string(data))

	metaPath := htmlPath[:len(htmlPath)-len(".html")] + ".crawl.json"
	metaData, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	var meta rag.CrawlResult
	require.NoError(t, json.Unmarshal(metaData, &meta))
	require.Equal(t, result.URL, meta.URL)
	require.Equal(t, result.Links, meta.Links)
	require.Empty(t, meta.HTML)
}

func TestSaveCrawlRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	sink, err := NewSink(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = sink.SaveCrawl(context.Background(), "job-1", rag.CrawlResult{URL: "https://example.com"})
	require.Error(t, err)
}

func TestSaveDocumentGroupsByJob(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sink, err := NewSink(root, zap.NewNop())
	require.NoError(t, err)

	doc := rag.TagDocument{
		URL:         "https://example.com/",
		Title:       "Home",
		ContentHash: "abc",
		Tags:        []rag.DocTag{{Kind: rag.TagTitle, Text: "Home"}},
	}
	path, err := sink.SaveDocument(context.Background(), "job-7", doc)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "job-7"), filepath.Dir(path))

	var loaded rag.TagDocument
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Equal(t, doc, loaded)
}

func TestDistinctURLsDoNotCollide(t *testing.T) {
	t.Parallel()

	sink, err := NewSink(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	a := sink.safeBasename("https://example.com/a?x=1")
	b := sink.safeBasename("https://example.com/a?x=2")
	require.NotEqual(t, a, b)
}

package doctags

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contextprime/crawlprime/internal/rag"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Release Notes</title></head>
<body>
  <h1>Release Notes</h1>
  <p>Highlights from the latest release.</p>
  <h2>Fixes</h2>
  <p>  Assorted   stability  fixes.  </p>
  <ul>
    <li>Faster startup</li>
    <li>Lower memory
      <ul><li>heap tuning</li></ul>
    </li>
  </ul>
  <p></p>
  <a href="/changelog">Full changelog</a>
</body>
</html>`

func TestMapBuildsHierarchyInDocumentOrder(t *testing.T) {
	t.Parallel()

	doc, err := New().Map(rag.CrawlResult{
		URL:   "https://example.com/notes",
		Title: "Release Notes",
		HTML:  samplePage,
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/notes", doc.URL)
	require.Equal(t, "Release Notes", doc.Title)
	require.Len(t, doc.ContentHash, 64)

	kinds := make([]rag.TagKind, 0, len(doc.Tags))
	for _, tag := range doc.Tags {
		kinds = append(kinds, tag.Kind)
	}
	require.Equal(t, []rag.TagKind{
		rag.TagTitle,
		rag.TagSection,
		rag.TagParagraph,
		rag.TagSection,
		rag.TagParagraph,
		rag.TagList,
		rag.TagLink,
	}, kinds)

	require.Equal(t, 1, doc.Tags[1].Level)
	require.Equal(t, 2, doc.Tags[3].Level)
	require.Equal(t, "Assorted stability fixes.", doc.Tags[4].Text)
	require.Equal(t, "Faster startup\nLower memory heap tuning", doc.Tags[5].Text)
	require.Equal(t, "/changelog", doc.Tags[6].Href)
}

func TestMapFallsBackToDocumentTitle(t *testing.T) {
	t.Parallel()

	doc, err := New().Map(rag.CrawlResult{
		URL:  "https://example.com",
		HTML: "<html><head><title>From Head</title></head><body></body></html>",
	})
	require.NoError(t, err)
	require.Equal(t, "From Head", doc.Title)
	require.Equal(t, rag.TagTitle, doc.Tags[0].Kind)
}

func TestMapUsesURLWhenNoTitleAnywhere(t *testing.T) {
	t.Parallel()

	doc, err := New().Map(rag.CrawlResult{
		URL:  "https://example.com/bare",
		HTML: "<html><body><p>text</p></body></html>",
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/bare", doc.Title)
}

func TestMapStableHashIgnoresMarkupNoise(t *testing.T) {
	t.Parallel()

	m := New()
	a, err := m.Map(rag.CrawlResult{URL: "u", HTML: "<body><p>same   text</p></body>"})
	require.NoError(t, err)
	b, err := m.Map(rag.CrawlResult{URL: "u", HTML: "<body ><p class=\"x\">same text</p></body>"})
	require.NoError(t, err)
	require.Equal(t, a.ContentHash, b.ContentHash)
}

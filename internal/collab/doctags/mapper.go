// Package doctags converts crawled HTML into a structured tag hierarchy.
package doctags

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/contextprime/crawlprime/internal/hash/sha256"
	"github.com/contextprime/crawlprime/internal/rag"
)

// Mapper implements rag.Mapper on top of goquery. The output preserves
// document order: title first, then sections, paragraphs, and lists as
// they appear in the body.
type Mapper struct {
	hasher *sha256.Hasher
}

// New builds a Mapper.
func New() *Mapper {
	return &Mapper{hasher: sha256.New()}
}

// Map parses the crawled page and emits its tag hierarchy. An empty page
// still produces a valid document carrying the title. The content hash is
// computed over the extracted text, so rendering noise (attribute order,
// whitespace) does not destabilize doc identity.
func (m *Mapper) Map(result rag.CrawlResult) (rag.TagDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return rag.TagDocument{}, fmt.Errorf("parse html for %s: %w", result.URL, err)
	}

	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = result.URL
	}

	tags := []rag.DocTag{{Kind: rag.TagTitle, Text: title}}
	doc.Find("body").Find("h1, h2, h3, h4, h5, h6, p, ul, ol").Each(func(_ int, sel *goquery.Selection) {
		tag, ok := mapNode(sel)
		if ok {
			tags = append(tags, tag)
		}
	})
	doc.Find("body a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := collapse(sel.Text())
		if href == "" || text == "" {
			return
		}
		tags = append(tags, rag.DocTag{Kind: rag.TagLink, Text: text, Href: href})
	})

	return rag.TagDocument{
		URL:         result.URL,
		Title:       title,
		ContentHash: m.hasher.Hash([]byte(textOf(tags))),
		Tags:        tags,
	}, nil
}

func mapNode(sel *goquery.Selection) (rag.DocTag, bool) {
	name := goquery.NodeName(sel)
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapse(sel.Text())
		if text == "" {
			return rag.DocTag{}, false
		}
		return rag.DocTag{Kind: rag.TagSection, Text: text, Level: int(name[1] - '0')}, true
	case "p":
		text := collapse(sel.Text())
		if text == "" {
			return rag.DocTag{}, false
		}
		return rag.DocTag{Kind: rag.TagParagraph, Text: text}, true
	case "ul", "ol":
		// Nested lists are flattened into their outermost tag.
		if sel.ParentsFiltered("ul, ol").Length() > 0 {
			return rag.DocTag{}, false
		}
		var items []string
		sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if item := collapse(li.Text()); item != "" {
				items = append(items, item)
			}
		})
		if len(items) == 0 {
			return rag.DocTag{}, false
		}
		return rag.DocTag{Kind: rag.TagList, Text: strings.Join(items, "\n")}, true
	}
	return rag.DocTag{}, false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textOf(tags []rag.DocTag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, tag.Text)
	}
	return strings.Join(parts, "\n")
}

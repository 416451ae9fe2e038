// Package webcrawl fetches pages for the ingest pipeline. Plain HTTP
// fetches go through Colly; script-heavy pages can be promoted to a
// headless Chrome render when that is enabled.
package webcrawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/rag"
)

// Config tunes the crawler.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headless  HeadlessConfig
}

// HeadlessConfig enables promotion of script-heavy pages to a browser render.
type HeadlessConfig struct {
	Enabled     bool
	MaxParallel int
	NavTimeout  time.Duration
}

const defaultUserAgent = "crawlprime/1.0"

// Crawler implements rag.Crawler.
type Crawler struct {
	base     *colly.Collector
	renderer *Renderer
	detector *Detector
	clock    rag.Clock
	logger   *zap.Logger
}

// New builds a Crawler. The renderer is only started when headless
// promotion is enabled.
func New(cfg Config, clock rag.Clock, logger *zap.Logger) (*Crawler, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	c := &Crawler{
		base:     base,
		detector: NewDetector(0),
		clock:    clock,
		logger:   logger,
	}

	if cfg.Headless.Enabled {
		renderer, err := NewRenderer(RendererConfig{
			UserAgent:   cfg.UserAgent,
			MaxParallel: cfg.Headless.MaxParallel,
			NavTimeout:  cfg.Headless.NavTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("start renderer: %w", err)
		}
		c.renderer = renderer
	}
	return c, nil
}

// Close tears down the headless renderer if one was started.
func (c *Crawler) Close(ctx context.Context) error {
	if c.renderer == nil {
		return nil
	}
	return c.renderer.Close(ctx)
}

// Crawl fetches one page and extracts its title and outbound links. When
// the fetched body looks like a script-rendered shell and a renderer is
// available, the fetch is retried through headless Chrome.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (rag.CrawlResult, error) {
	body, finalURL, err := c.fetch(ctx, rawURL)
	if err != nil {
		return rag.CrawlResult{}, err
	}

	rendered := false
	if c.renderer != nil && c.detector.ShouldRender(body) {
		html, renderErr := c.renderer.Render(ctx, rawURL)
		if renderErr != nil {
			c.logger.Warn("headless render failed, keeping plain fetch",
				zap.String("url", rawURL),
				zap.Error(renderErr),
			)
		} else {
			body = html
			rendered = true
		}
	}

	result := rag.CrawlResult{
		URL:       rawURL,
		HTML:      body,
		FetchedAt: c.clock.Now(),
		Rendered:  rendered,
	}
	result.Title, result.Links, err = extractPage(body, finalURL)
	if err != nil {
		return rag.CrawlResult{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return result, nil
}

type fetchResult struct {
	body     []byte
	finalURL string
	status   int
	err      error
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (string, string, error) {
	collector := c.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{
			body:     append([]byte{}, r.Body...),
			finalURL: r.Request.URL.String(),
			status:   r.StatusCode,
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{status: status, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", "", fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		if res.err != nil {
			return "", "", fmt.Errorf("fetch %s: %w", rawURL, res.err)
		}
		if res.status >= 400 {
			return "", "", fmt.Errorf("fetch %s: status %d", rawURL, res.status)
		}
		return string(res.body), res.finalURL, nil
	default:
		return "", "", fmt.Errorf("fetch %s: no response", rawURL)
	}
}

// extractPage pulls the page title and absolute, deduplicated http(s)
// links out of the HTML. Links are resolved against the final URL so
// redirected pages resolve relative hrefs correctly.
func extractPage(html, baseURL string) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			parsed = base.ResolveReference(parsed)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		parsed.Fragment = ""
		abs := parsed.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return title, links, nil
}

// Package artifacts persists pipeline intermediates to disk so crawls
// and mapped documents can be inspected after a job finishes.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/contextprime/crawlprime/internal/hash/sha256"
	"github.com/contextprime/crawlprime/internal/rag"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Sink writes crawl snapshots and tag documents under a root directory,
// grouped per job.
type Sink struct {
	root   string
	hasher *sha256.Hasher
	logger *zap.Logger
}

// NewSink returns a sink rooted at dir, creating it if needed.
func NewSink(root string, logger *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", root, err)
	}
	return &Sink{root: root, hasher: sha256.New(), logger: logger}, nil
}

// SaveCrawl writes the raw HTML snapshot plus a crawl metadata json.
// Returns the path of the HTML file.
func (s *Sink) SaveCrawl(ctx context.Context, jobID string, result rag.CrawlResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	if result.HTML == "" {
		return "", fmt.Errorf("empty page body for %s", result.URL)
	}

	base := filepath.Join(s.root, jobID, s.safeBasename(result.URL))
	if err := os.MkdirAll(filepath.Dir(base), 0o750); err != nil {
		return "", fmt.Errorf("create crawl dir: %w", err)
	}
	htmlPath := base + ".html"
	if err := os.WriteFile(htmlPath, []byte(result.HTML), 0o600); err != nil {
		return "", fmt.Errorf("write html %s: %w", htmlPath, err)
	}

	meta := result
	meta.HTML = ""
	if err := s.writeJSON(base+".crawl.json", meta); err != nil {
		return "", err
	}
	s.logger.Debug("crawl artifact saved", zap.String("path", htmlPath))
	return htmlPath, nil
}

// SaveDocument writes the mapped tag document json.
func (s *Sink) SaveDocument(ctx context.Context, jobID string, doc rag.TagDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	base := filepath.Join(s.root, jobID, s.safeBasename(doc.URL))
	if err := os.MkdirAll(filepath.Dir(base), 0o750); err != nil {
		return "", fmt.Errorf("create doc dir: %w", err)
	}
	path := base + ".tags.json"
	if err := s.writeJSON(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Sink) writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// safeBasename flattens a URL into a filesystem-safe name. A short URL
// hash keeps distinct URLs from colliding after sanitization.
func (s *Sink) safeBasename(raw string) string {
	hash := s.hasher.Hash([]byte(raw))[:16]
	u, err := url.Parse(raw)
	if err != nil {
		return hash
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidFilenameChars.ReplaceAllString(p, "_")
	return fmt.Sprintf("%s_%s_%s", host, p, hash)
}

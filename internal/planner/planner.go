// Package planner builds ordered pipeline plans from a target URL.
package planner

import (
	"net/url"
	"strings"

	"github.com/contextprime/crawlprime/internal/rag"
)

// Mode selects how a URL is treated during planning.
type Mode string

// Planning modes. ModeAuto classifies by URL shape.
const (
	ModeAuto   Mode = "auto"
	ModeSingle Mode = "single"
	ModeSite   Mode = "site"
)

// Options tunes plan construction. HasSummarizer/HasClusterer reflect
// presence of the corresponding optional collaborator; the matching steps
// are emitted only when the capability exists.
type Options struct {
	Mode          Mode
	MaxPages      int
	HasSummarizer bool
	HasClusterer  bool
}

// Build produces the ordered step sequence for rawURL. Pure function of
// its inputs: no I/O, no shared state. An unusable URL yields zero steps;
// the orchestrator surfaces that as a validation failure before any
// collaborator is invoked.
func Build(rawURL string, opts Options) []rag.PlanStep {
	target, ok := normalize(rawURL)
	if !ok {
		return nil
	}

	site := classify(target, opts.Mode)
	steps := []rag.PlanStep{
		{Kind: rag.StepCrawl, URL: target.String(), FollowLinks: site, MaxPages: maxPages(opts, site)},
		{Kind: rag.StepMap, URL: target.String()},
		{Kind: rag.StepIngest, URL: target.String()},
	}
	if opts.HasSummarizer {
		steps = append(steps, rag.PlanStep{Kind: rag.StepSummarize, URL: target.String()})
	}
	if opts.HasClusterer {
		steps = append(steps, rag.PlanStep{Kind: rag.StepCluster, URL: target.String()})
	}
	return steps
}

// normalize parses and standardizes the URL: lowercased scheme/host,
// default ports and fragments removed. Only absolute http(s) URLs plan.
func normalize(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	return u, true
}

// classify decides single-page vs. site crawl. In auto mode a URL at the
// site root is a site crawl; anything deeper is a single page.
func classify(u *url.URL, mode Mode) bool {
	switch mode {
	case ModeSingle:
		return false
	case ModeSite:
		return true
	default:
		return u.Path == "" || u.Path == "/"
	}
}

func maxPages(opts Options, site bool) int {
	if !site {
		return 0
	}
	if opts.MaxPages > 0 {
		return opts.MaxPages
	}
	return 25
}

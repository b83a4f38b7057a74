// Package extractor turns a raw URL into canonical page data: fetch, tag
// parsing, canonical resolution, category enrichment, integrations and the
// safety check.
package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/linkdex/internal/config"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// Options configure an Extractor.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	MaxCanonicalDepth int

	NPMRegistryURL   string
	GitHubAPIURL     string
	GitHubRawURL     string
	YouTubeOEmbedURL string

	// HTTPClient overrides the default client. Tests use it to route
	// every host to a local server.
	HTTPClient *http.Client
}

// OptionsFromConfig maps the extraction section of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.FetchTimeout,
		MaxCanonicalDepth: cfg.MaxCanonicalDepth,
		NPMRegistryURL:    cfg.NPMRegistryURL,
		GitHubAPIURL:      cfg.GitHubAPIURL,
		GitHubRawURL:      cfg.GitHubRawURL,
		YouTubeOEmbedURL:  cfg.YouTubeOEmbedURL,
	}
}

// Extractor fetches and analyzes pages. It never retries; the only extra
// round trips are the bounded canonical re-fetch, enrichment lookups,
// image checks and the safety lookup.
type Extractor struct {
	http      *http.Client
	userAgent string
	maxDepth  int

	npmRegistry string
	githubAPI   string
	githubRaw   string
	oembed      string

	table  *integrations.Table
	safety *Safety
	log    logger.Logger
}

// New creates an Extractor.
func New(opts Options, table *integrations.Table, safety *Safety, log logger.Logger) *Extractor {
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	if opts.MaxCanonicalDepth < 1 {
		opts.MaxCanonicalDepth = 3
	}
	if table == nil {
		table = integrations.Default()
	}
	return &Extractor{
		http:        client,
		userAgent:   opts.UserAgent,
		maxDepth:    opts.MaxCanonicalDepth,
		npmRegistry: strings.TrimRight(opts.NPMRegistryURL, "/"),
		githubAPI:   strings.TrimRight(opts.GitHubAPIURL, "/"),
		githubRaw:   strings.TrimRight(opts.GitHubRawURL, "/"),
		oembed:      opts.YouTubeOEmbedURL,
		table:       table,
		safety:      safety,
		log:         log.With(logger.String("component", "extractor")),
	}
}

// Extract resolves target to a PageDraft. Network failures wrap
// domain.ErrUnreachable. An unsafe page is not an error: IsSafe is false.
func (e *Extractor) Extract(ctx context.Context, target string) (*domain.PageDraft, error) {
	draft, err := e.extract(ctx, target, 0)
	if err != nil {
		return nil, err
	}

	draft.Integrations = e.table.Derive(draft, nil)
	draft.IsSafe = e.safety.IsSafe(ctx, draft.URL)

	e.log.Debug("page extracted",
		logger.String("url", draft.URL),
		logger.String("category", draft.Category),
		logger.Bool("safe", draft.IsSafe))
	return draft, nil
}

func (e *Extractor) extract(ctx context.Context, target string, depth int) (*domain.PageDraft, error) {
	if depth > e.maxDepth {
		return nil, fmt.Errorf("%w: canonical chain for %s exceeds %d hops", domain.ErrUnreachable, target, e.maxDepth)
	}

	// Registry and repository pages are described by their APIs.
	if draft, ok := e.fromAPI(ctx, target); ok {
		return draft, nil
	}

	resp, err := e.fetch(ctx, target)
	if err != nil {
		if rewritten, ok := bypass(target); ok {
			e.log.Debug("fetch failed, using bypass", logger.String("url", target), logger.String("rewritten", rewritten))
			return e.enrich(ctx, &domain.PageDraft{URL: rewritten, Category: domain.CategoryOthers}), nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html %s: %v", domain.ErrUnreachable, target, err)
	}

	final := resp.Request.URL
	canonical := resolveCanonical(final, canonicalOf(doc))
	if !strings.EqualFold(canonical.Host, final.Host) {
		e.log.Debug("canonical host differs, re-extracting",
			logger.String("from", final.String()),
			logger.String("to", canonical.String()),
			logger.Int("depth", depth+1))
		return e.extract(ctx, canonical.String(), depth+1)
	}

	pageURL, err := domain.NormalizeURL(canonical.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}

	t := parseTags(doc)
	draft := &domain.PageDraft{
		URL:         pageURL,
		Title:       t.Title,
		Description: t.Description,
		Video:       absolute(final, t.Video),
		Author:      t.Author,
		Category:    domain.CategoryOthers,
	}
	if img := absolute(final, t.Image); img != "" && e.reachable(ctx, img) {
		draft.Image = img
	}

	return e.enrich(ctx, draft), nil
}

// fetch GETs target and fails with ErrUnreachable on any non-2xx answer.
func (e *Extractor) fetch(ctx context.Context, target string) (*http.Response, error) {
	req, err := e.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", domain.ErrUnreachable, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: http status: %s", domain.ErrUnreachable, target, resp.Status)
	}
	return resp, nil
}

// resolveCanonical returns the canonical URL declared by the page, or the
// response URL when none is declared, it does not parse, or it points a
// non-root page at the site root.
func resolveCanonical(final *url.URL, declared string) *url.URL {
	if declared == "" {
		return final
	}
	ref, err := url.Parse(declared)
	if err != nil {
		return final
	}
	canonical := final.ResolveReference(ref)
	if canonical.Scheme != "http" && canonical.Scheme != "https" {
		return final
	}
	if !isRoot(final.Path) && isRoot(canonical.Path) {
		return final
	}
	return canonical
}

func isRoot(path string) bool {
	return path == "" || path == "/"
}

func absolute(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

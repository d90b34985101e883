package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/crawlgraph/internal/model"
)

// ErrInvalidSeed is returned when the seed is not an http(s) URL with a host.
var ErrInvalidSeed = errors.New("invalid seed URL")

// ParentChecker reports whether a page was already crawled for a crawl id.
// The crawl store implements it so that resumed crawls skip finished pages.
type ParentChecker interface {
	HasParent(ctx context.Context, crawlID, parentURL string) (bool, error)
}

// Spider crawls one site breadth-first and reports every fetched HTML page
// as a CrawlEvent. A Spider holds configuration only; each Crawl call keeps
// its own visited set, so one Spider may serve concurrent crawls.
type Spider struct {
	client *http.Client
	logger *slog.Logger

	// maxDepth bounds scheduling: children of a page at maxDepth are
	// reported but not fetched. 0 fetches only the seed.
	maxDepth int

	// maxPages bounds the number of fetched pages per crawl.
	maxPages int

	// delay is the politeness pause between requests.
	delay time.Duration

	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string

	// ignorePatterns and followPatterns are glob patterns on the URL path.
	ignorePatterns []string
	followPatterns []string

	checker ParentChecker
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages fetched per crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithSpiderUserAgent sets the User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithSpiderMaxBodySize limits how much of each response body is parsed.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithCookie sends cookie with every request.
func WithCookie(cookie string) SpiderOption {
	return func(s *Spider) {
		s.cookie = cookie
	}
}

// WithHeaders adds request headers. Later calls override earlier keys.
func WithHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		if s.headers == nil {
			s.headers = make(map[string]string, len(headers))
		}
		maps.Copy(s.headers, headers)
	}
}

// WithIgnorePatterns skips links whose path matches any pattern
// (glob syntax, e.g. "/admin/*", "*.pdf").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts links to paths matching at least one pattern.
// An empty list allows every path not ignored.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithParentChecker consults c before fetching a page.
func WithParentChecker(c ParentChecker) SpiderOption {
	return func(s *Spider) {
		s.checker = c
	}
}

// WithSpiderLogger sets the logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider using client for every request.
// A nil client uses http.DefaultClient.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Spider{
		client:      client,
		logger:      slog.Default(),
		maxDepth:    3,
		maxPages:    200,
		delay:       500 * time.Millisecond,
		userAgent:   "crawlgraph/1.0 (+https://github.com/nao1215/crawlgraph)",
		maxBodySize: 5 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type queueItem struct {
	url   string
	depth int
}

// Crawl walks the site of seed, calling emit once per fetched HTML page with
// the page URL and its filtered, absolute child links (duplicates kept).
// Fetch failures are logged and skipped. An emit error or a cancelled
// context stops the crawl; the partial summary is returned with the error.
func (s *Spider) Crawl(ctx context.Context, seed, crawlID string, emit func(model.CrawlEvent) error) (*model.Crawl, error) {
	start, err := normalizeSeed(seed)
	if err != nil {
		return nil, err
	}

	crawl := &model.Crawl{
		ID:             crawlID,
		Seed:           start.String(),
		StartedAt:      time.Now(),
		PerformedSteps: make([]string, 0),
	}
	finish := func(err error) (*model.Crawl, error) {
		crawl.FinishedAt = time.Now()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			crawl.TimedOut = true
		}
		if err != nil {
			crawl.Error = err.Error()
		}
		return crawl, err
	}

	visited := make(map[string]bool)
	queue := []queueItem{{url: start.String(), depth: 0}}

	for len(queue) > 0 && crawl.PagesCrawled < s.maxPages {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		item := queue[0]
		queue = queue[1:]

		key := normalizeURL(item.url)
		if visited[key] {
			continue
		}
		visited[key] = true

		if s.alreadyCrawled(ctx, crawlID, item.url) {
			s.logger.Debug("skipping page crawled earlier", "url", item.url, "crawl_id", crawlID)
			continue
		}

		if crawl.PagesCrawled > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return finish(ctx.Err())
			case <-time.After(s.delay):
			}
		}

		page, err := s.fetchPage(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			s.logger.Warn("fetch failed", "url", item.url, "error", err)
			continue
		}
		crawl.PagesCrawled++
		if !page.IsHTML() {
			continue
		}
		page.Children = s.filterLinks(start.Host, page.Children)

		if err := emit(page.Event(crawlID)); err != nil {
			return finish(fmt.Errorf("emit %s: %w", page.URL, err))
		}
		crawl.EventsEmitted++

		if item.depth >= s.maxDepth {
			continue
		}
		for _, child := range page.Children {
			if !visited[normalizeURL(child)] {
				queue = append(queue, queueItem{url: child, depth: item.depth + 1})
			}
		}
	}

	return finish(nil)
}

func (s *Spider) alreadyCrawled(ctx context.Context, crawlID, pageURL string) bool {
	if s.checker == nil {
		return false
	}
	ok, err := s.checker.HasParent(ctx, crawlID, pageURL)
	if err != nil {
		s.logger.Warn("crawl store lookup failed", "url", pageURL, "error", err)
		return false
	}
	return ok
}

// fetchPage fetches pageURL and parses its anchors into Page.Children.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// Redirects change the base that relative links resolve against.
	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}

	page := &model.Page{
		URL:         pageURL,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !page.IsHTML() {
		return page, nil
	}

	parser, err := NewParser(base)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	page.Children = result.Links
	return page, nil
}

// filterLinks keeps links on host whose path passes the ignore and follow
// patterns. Order and duplicates are preserved.
func (s *Spider) filterLinks(host string, links []string) []string {
	out := make([]string, 0, len(links))
	for _, link := range links {
		if isSameHost(host, link) && s.shouldCrawl(link) {
			out = append(out, link)
		}
	}
	return out
}

// normalizeSeed parses seed, defaulting the scheme to https.
func normalizeSeed(seed string) (*url.URL, error) {
	seed = strings.TrimSpace(seed)
	if seed != "" && !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, seed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// normalizeURL is the visited-set key: lowercase scheme and host,
// no fragment, and "/" for an empty path.
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func isSameHost(host, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Host == "" || strings.EqualFold(u.Host, host)
}

// shouldCrawl applies ignorePatterns first, then followPatterns if any.
func (s *Spider) shouldCrawl(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern matches path against a glob. "/dir/*" also matches anything
// below /dir, and "*.ext" matches by suffix.
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}

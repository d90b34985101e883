package ingest

import (
	"context"
	"io"
	"sync"

	"github.com/nao1215/crawlgraph/internal/model"
)

// Crawler walks a site and reports every fetched page as an event.
type Crawler interface {
	Crawl(ctx context.Context, seed, crawlID string, emit func(model.CrawlEvent) error) (*model.Crawl, error)
}

// CrawlSource streams events from a live crawl. The crawl starts on the
// first call to Next and runs in its own goroutine.
type CrawlSource struct {
	crawler Crawler
	seed    string
	crawlID string

	once   sync.Once
	events chan model.CrawlEvent
	done   chan struct{}
	result *model.Crawl
	err    error
}

// NewCrawlSource creates a source crawling seed under crawlID. An empty
// crawlID gets a fresh one.
func NewCrawlSource(c Crawler, seed, crawlID string) *CrawlSource {
	if crawlID == "" {
		crawlID = model.NewCrawlID()
	}
	return &CrawlSource{
		crawler: c,
		seed:    seed,
		crawlID: crawlID,
		events:  make(chan model.CrawlEvent, 16),
		done:    make(chan struct{}),
	}
}

// Name implements Source.
func (s *CrawlSource) Name() string { return "crawl" }

// CrawlID returns the id events are tagged with.
func (s *CrawlSource) CrawlID() string { return s.crawlID }

func (s *CrawlSource) start(ctx context.Context) {
	go func() {
		defer close(s.done)
		defer close(s.events)
		s.result, s.err = s.crawler.Crawl(ctx, s.seed, s.crawlID, func(ev model.CrawlEvent) error {
			select {
			case s.events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
}

// Next implements Source. After the last event it returns the crawl error,
// or io.EOF when the crawl succeeded.
func (s *CrawlSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	s.once.Do(func() { s.start(ctx) })
	select {
	case <-ctx.Done():
		return model.CrawlEvent{}, ctx.Err()
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
	}
	<-s.done
	if s.err != nil {
		return model.CrawlEvent{}, s.err
	}
	return model.CrawlEvent{}, io.EOF
}

// Result returns the crawl summary once the source is exhausted.
func (s *CrawlSource) Result() *model.Crawl {
	select {
	case <-s.done:
		return s.result
	default:
		return nil
	}
}

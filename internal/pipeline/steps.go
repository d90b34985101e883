package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/crawlgraph/internal/model"
)

// Store is the part of the crawl store the steps write to.
type Store interface {
	CreateCrawl(ctx context.Context, c *model.Crawl) error
	FinishCrawl(ctx context.Context, c *model.Crawl) error
	SaveEvent(ctx context.Context, ev model.CrawlEvent) error
}

// Crawler walks a site from seed, reporting pages through emit.
type Crawler interface {
	Crawl(ctx context.Context, seed, crawlID string, emit func(model.CrawlEvent) error) (*model.Crawl, error)
}

// Sink receives every event a crawl produces.
type Sink func(ctx context.Context, ev model.CrawlEvent) error

// StoreSink appends events to the store's relationship log.
func StoreSink(s Store) Sink {
	return s.SaveEvent
}

// IngestSink hands events to anything with an Ingest method, such as the
// live layout ingestor. It never fails.
func IngestSink(in interface{ Ingest(model.CrawlEvent) }) Sink {
	return func(_ context.Context, ev model.CrawlEvent) error {
		in.Ingest(ev)
		return nil
	}
}

// RegisterStep records a new crawl in the store.
type RegisterStep struct {
	store Store
}

// NewRegisterStep creates a RegisterStep.
func NewRegisterStep(store Store) *RegisterStep {
	return &RegisterStep{store: store}
}

// Name implements Step.
func (s *RegisterStep) Name() string { return "register" }

// Do implements Step.
func (s *RegisterStep) Do(ctx context.Context, crawl *model.Crawl) error {
	if err := s.store.CreateCrawl(ctx, crawl); err != nil {
		return fmt.Errorf("register crawl: %w", err)
	}
	return nil
}

// CrawlStep runs the crawler and fans its events out to the sinks in order.
type CrawlStep struct {
	crawler Crawler
	sinks   []Sink
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithSink adds an event sink.
func WithSink(sink Sink) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithCrawlLogger sets the step logger.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{crawler: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Step.
func (s *CrawlStep) Name() string { return "crawl" }

// Do implements Step. Counters from a partial crawl are kept on error.
func (s *CrawlStep) Do(ctx context.Context, crawl *model.Crawl) error {
	result, err := s.crawler.Crawl(ctx, crawl.Seed, crawl.ID, func(ev model.CrawlEvent) error {
		for _, sink := range s.sinks {
			if err := sink(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if result != nil {
		crawl.PagesCrawled = result.PagesCrawled
		crawl.EventsEmitted = result.EventsEmitted
		crawl.TimedOut = crawl.TimedOut || result.TimedOut
	}
	if err != nil {
		return fmt.Errorf("crawl %s: %w", crawl.Seed, err)
	}
	s.logger.Info("crawl finished", "crawl_id", crawl.ID, "pages", crawl.PagesCrawled, "events", crawl.EventsEmitted)
	return nil
}

// FinishStep stamps the finish time and stores the final crawl state.
type FinishStep struct {
	store Store
	now   func() time.Time
}

// NewFinishStep creates a FinishStep.
func NewFinishStep(store Store) *FinishStep {
	return &FinishStep{store: store, now: time.Now}
}

// Name implements Step.
func (s *FinishStep) Name() string { return "finish" }

// Final implements FinalStep.
func (s *FinishStep) Final() bool { return true }

// Do implements Step.
func (s *FinishStep) Do(ctx context.Context, crawl *model.Crawl) error {
	crawl.FinishedAt = s.now()
	// Include this step in the stored list.
	stored := *crawl
	stored.PerformedSteps = append(append([]string(nil), crawl.PerformedSteps...), s.Name())
	if err := s.store.FinishCrawl(ctx, &stored); err != nil {
		return fmt.Errorf("finish crawl: %w", err)
	}
	return nil
}

// NewCrawlPipeline assembles register, crawl and finish for one seed.
// The store sink is always first among the sinks.
func NewCrawlPipeline(store Store, c Crawler, logger *slog.Logger, sinks ...Sink) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []CrawlStepOption{WithSink(StoreSink(store)), WithCrawlLogger(logger)}
	for _, sink := range sinks {
		opts = append(opts, WithSink(sink))
	}
	p := New(WithLogger(logger))
	p.AddSteps(
		NewRegisterStep(store),
		NewCrawlStep(c, opts...),
		NewFinishStep(store),
	)
	return p
}

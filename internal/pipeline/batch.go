package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlgraph/internal/model"
)

// BatchProcessor crawls several seeds concurrently.
type BatchProcessor struct {
	// pipelineFactory builds a fresh pipeline per seed, so per-site
	// settings can differ between seeds.
	pipelineFactory func(seed string) *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the batch logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many seeds are crawled at once. Non-positive
// values keep the default of 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch crawls every seed and returns the crawls in seed order.
// A failed crawl does not stop the others; its error is recorded on the
// crawl. The returned error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.Crawl, error) {
	results := make([]*model.Crawl, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(c *model.Crawl, i int) {
		results[i] = c
	})
	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback from the
// crawling goroutine as each finishes. Seeds not started before
// cancellation get no callback.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, seeds []string, callback func(crawl *model.Crawl, index int)) error {
	bp.logger.Info("starting batch crawl", "seeds", len(seeds), "concurrency", bp.concurrency)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			crawl := model.NewCrawl(seed)
			bp.logger.Info("crawling seed", "seed", seed, "crawl_id", crawl.ID, "index", i+1, "total", len(seeds))

			if err := bp.pipelineFactory(seed).Execute(ctx, crawl); err != nil {
				bp.logger.Warn("crawl failed", "seed", seed, "crawl_id", crawl.ID, "error", err)
			}
			callback(crawl, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch crawl complete", "seeds", len(seeds), "elapsed", time.Since(start))
	return err
}

package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/crawlgraph/internal/model"
)

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func(string) *Pipeline { return New() })
	if bp.concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
	}
	if NewBatchProcessor(nil, WithConcurrency(2)).concurrency != 2 {
		t.Error("expected concurrency 2")
	}
	if NewBatchProcessor(nil, WithConcurrency(0)).concurrency != 4 {
		t.Error("expected non-positive concurrency to keep the default")
	}
	if NewBatchProcessor(nil, WithBatchLogger(nil)).logger == nil {
		t.Error("expected default logger")
	}
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("crawls every seed with its own crawl id", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		crawler := &fakeCrawler{events: sampleEvents()}
		bp := NewBatchProcessor(func(string) *Pipeline {
			return NewCrawlPipeline(store, crawler, nil)
		}, WithConcurrency(2))

		seeds := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
		crawls, err := bp.ProcessBatch(t.Context(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(crawls) != 3 {
			t.Fatalf("expected 3 crawls, got %d", len(crawls))
		}
		ids := make(map[string]bool)
		for i, c := range crawls {
			if c.Seed != seeds[i] {
				t.Errorf("expected seed %s at %d, got %s", seeds[i], i, c.Seed)
			}
			if !model.IsValidCrawlID(c.ID) {
				t.Errorf("expected uuid crawl id, got %q", c.ID)
			}
			ids[c.ID] = true
		}
		if len(ids) != 3 {
			t.Error("expected distinct crawl ids")
		}
		if len(store.events) != 6 {
			t.Errorf("expected 6 stored events, got %d", len(store.events))
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.Crawl) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			}})
			return p
		}, WithConcurrency(2))

		if _, err := bp.ProcessBatch(t.Context(), make([]string, 6)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent crawls, got %d", peak.Load())
		}
	})

	t.Run("callback sees every crawl", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[int]string)
		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		err := bp.ProcessBatchWithCallback(t.Context(), []string{"x", "y"}, func(c *model.Crawl, i int) {
			mu.Lock()
			defer mu.Unlock()
			seen[i] = c.Seed
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[0] != "x" || seen[1] != "y" {
			t.Errorf("unexpected callbacks %v", seen)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		if _, err := bp.ProcessBatch(ctx, []string{"x"}); err == nil {
			t.Error("expected cancellation error")
		}
	})
}

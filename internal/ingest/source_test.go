package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/crawlgraph/internal/model"
)

func drainSource(t *testing.T, src Source) ([]model.CrawlEvent, int) {
	t.Helper()
	var events []model.CrawlEvent
	malformed := 0
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events, malformed
		}
		if errors.Is(err, ErrMalformedEvent) {
			malformed++
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, ev)
	}
}

func TestReaderSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		wantParents   []string
		wantMalformed int
	}{
		{
			name:        "json array",
			input:       `[{"CrawlID":"c","ParentURL":"a","ChildURLs":["b"]},{"ParentURL":"b","ChildURLs":null}]`,
			wantParents: []string{"a", "b"},
		},
		{
			name:          "json array with bad element",
			input:         ` [{"ParentURL":"a"}, 42, {"ParentURL":"c"}]`,
			wantParents:   []string{"a", "c"},
			wantMalformed: 1,
		},
		{
			name:          "json lines",
			input:         "{\"ParentURL\":\"a\",\"ChildURLs\":[\"b\"]}\n\n not json\n{\"ParentURL\":\"b\"}\n",
			wantParents:   []string{"a", "b"},
			wantMalformed: 1,
		},
		{
			name:  "empty input",
			input: "  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			events, malformed := drainSource(t, NewReaderSource(strings.NewReader(tt.input)))
			if malformed != tt.wantMalformed {
				t.Errorf("expected %d malformed, got %d", tt.wantMalformed, malformed)
			}
			if len(events) != len(tt.wantParents) {
				t.Fatalf("expected %d events, got %d", len(tt.wantParents), len(events))
			}
			for k, want := range tt.wantParents {
				if events[k].ParentURL != want {
					t.Errorf("event %d: expected parent %q, got %q", k, want, events[k].ParentURL)
				}
			}
		})
	}

	t.Run("truncated array is fatal", func(t *testing.T) {
		t.Parallel()

		src := NewReaderSource(strings.NewReader(`[{"ParentURL":"a"}, {"ParentURL":`))
		if _, err := src.Next(context.Background()); err != nil {
			t.Fatalf("expected first event, got %v", err)
		}
		_, err := src.Next(context.Background())
		if err == nil || errors.Is(err, ErrMalformedEvent) || errors.Is(err, io.EOF) {
			t.Errorf("expected fatal decode error, got %v", err)
		}
	})
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := "{\"ParentURL\":\"a\",\"ChildURLs\":[\"b\",\"c\"]}\n{\"ParentURL\":\"c\",\"ChildURLs\":[\"a\"]}\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Close()

	i := New()
	if err := i.Consume(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := i.Tick()
	if res.Fingerprint.Nodes != 3 || res.Fingerprint.Edges != 3 {
		t.Errorf("unexpected fingerprint: %+v", res.Fingerprint)
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

type fakeLog struct {
	events map[string][]model.CrawlEvent
}

func (f fakeLog) Events(_ context.Context, crawlID string) ([]model.CrawlEvent, error) {
	events, ok := f.events[crawlID]
	if !ok {
		return nil, errors.New("crawl not found")
	}
	return events, nil
}

func TestStoreSource(t *testing.T) {
	t.Parallel()

	log := fakeLog{events: map[string][]model.CrawlEvent{"c1": SampleEvents()}}

	events, _ := drainSource(t, NewStoreSource(log, "c1"))
	if len(events) != 6 {
		t.Errorf("expected 6 events, got %d", len(events))
	}

	i := New()
	err := i.Consume(context.Background(), NewStoreSource(log, "missing"))
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("expected load error naming the crawl, got %v", err)
	}
}

type fakeCrawler struct {
	pages []model.CrawlEvent
	err   error
}

func (f fakeCrawler) Crawl(_ context.Context, seed, crawlID string, emit func(model.CrawlEvent) error) (*model.Crawl, error) {
	c := model.NewCrawl(seed)
	c.ID = crawlID
	for _, p := range f.pages {
		p.CrawlID = crawlID
		if err := emit(p); err != nil {
			return c, err
		}
		c.PagesCrawled++
	}
	return c, f.err
}

func TestCrawlSource(t *testing.T) {
	t.Parallel()

	t.Run("streams pages", func(t *testing.T) {
		t.Parallel()

		src := NewCrawlSource(fakeCrawler{pages: SampleEvents()}, "https://example.com", "")
		if !model.IsValidCrawlID(src.CrawlID()) {
			t.Errorf("expected generated crawl id, got %q", src.CrawlID())
		}
		events, _ := drainSource(t, src)
		if len(events) != 6 {
			t.Fatalf("expected 6 events, got %d", len(events))
		}
		if events[0].CrawlID != src.CrawlID() {
			t.Errorf("expected events tagged with %q, got %q", src.CrawlID(), events[0].CrawlID)
		}
		if r := src.Result(); r == nil || r.PagesCrawled != 6 {
			t.Errorf("unexpected crawl result: %+v", r)
		}
	})

	t.Run("reports crawl failure", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		src := NewCrawlSource(fakeCrawler{err: boom}, "https://example.com", "id")
		i := New()
		if err := i.Consume(context.Background(), src); !errors.Is(err, boom) {
			t.Errorf("expected crawl error, got %v", err)
		}
	})
}

func TestChannelSource(t *testing.T) {
	t.Parallel()

	ch := make(chan model.CrawlEvent, 2)
	ch <- model.CrawlEvent{ParentURL: "a"}
	ch <- model.CrawlEvent{ParentURL: "b"}
	close(ch)

	events, _ := drainSource(t, NewChannelSource("test", ch))
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewChannelSource("test", make(chan model.CrawlEvent)).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestSampleEvents(t *testing.T) {
	t.Parallel()

	a, b := SampleEvents(), SampleEvents()
	a[0].ChildURLs[0] = "mutated"
	if b[0].ChildURLs[0] == "mutated" {
		t.Error("expected independent copies")
	}
	if len(a) != 6 {
		t.Errorf("expected 6 events, got %d", len(a))
	}
}

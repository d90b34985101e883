package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/crawlgraph/internal/model"
)

// EventLog is a store that can replay the events of a crawl in the order
// they were recorded.
type EventLog interface {
	Events(ctx context.Context, crawlID string) ([]model.CrawlEvent, error)
}

// StoreSource replays a stored crawl.
type StoreSource struct {
	store   EventLog
	crawlID string

	once   sync.Once
	events []model.CrawlEvent
	err    error
	next   int
}

// NewStoreSource creates a source replaying crawlID from store.
func NewStoreSource(store EventLog, crawlID string) *StoreSource {
	return &StoreSource{store: store, crawlID: crawlID}
}

// Name implements Source.
func (s *StoreSource) Name() string { return "store" }

// Next implements Source. The crawl is loaded on the first call.
func (s *StoreSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	s.once.Do(func() {
		s.events, s.err = s.store.Events(ctx, s.crawlID)
		if s.err != nil {
			s.err = fmt.Errorf("failed to load crawl %s: %w", s.crawlID, s.err)
		}
	})
	if s.err != nil {
		return model.CrawlEvent{}, s.err
	}
	if err := ctx.Err(); err != nil {
		return model.CrawlEvent{}, err
	}
	if s.next >= len(s.events) {
		return model.CrawlEvent{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

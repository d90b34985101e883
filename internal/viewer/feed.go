package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nao1215/crawlgraph/internal/ingest"
	"github.com/nao1215/crawlgraph/internal/model"
)

// subscriberBuffer is the number of events queued per subscriber.
const subscriberBuffer = 256

// Feed fans crawl events out to websocket subscribers. A subscriber
// receives the events of the CrawlID it subscribed to; an empty CrawlID
// receives everything. Events for a subscriber whose queue is full are
// dropped and logged.
type Feed struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	crawlID string
	send    chan model.CrawlEvent
}

// NewFeed creates an empty feed. A nil logger uses slog.Default.
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{logger: logger, subs: make(map[*subscriber]struct{})}
}

// Publish delivers ev to matching subscribers. Its signature matches
// pipeline.Sink.
func (f *Feed) Publish(ctx context.Context, ev model.CrawlEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for s := range f.subs {
		if s.crawlID != "" && s.crawlID != ev.CrawlID {
			continue
		}
		select {
		case s.send <- ev.Clone():
		default:
			f.logger.Warn("dropping event for slow subscriber",
				slog.String("crawl_id", ev.CrawlID),
				slog.String("parent", ev.ParentURL))
		}
	}
	return nil
}

// Subscribers returns the number of subscribers.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *Feed) subscribe(crawlID string) *subscriber {
	s := &subscriber{crawlID: crawlID, send: make(chan model.CrawlEvent, subscriberBuffer)}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()
	return s
}

func (f *Feed) unsubscribe(s *subscriber) {
	f.mu.Lock()
	delete(f.subs, s)
	f.mu.Unlock()
}

// serve reads the subscribe message from conn and streams events until the
// peer goes away or ctx is done.
func (f *Feed) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	var sub ingest.Subscription
	if err := conn.ReadJSON(&sub); err != nil || sub.Action != ingest.ActionSubscribe {
		msg := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "expected subscribe message")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}

	s := f.subscribe(sub.CrawlID)
	defer f.unsubscribe(s)
	f.logger.Debug("event subscriber connected", slog.String("crawl_id", sub.CrawlID))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case ev := <-s.send:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

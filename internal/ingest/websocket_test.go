package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nao1215/crawlgraph/internal/model"
)

func TestWebSocketSource(t *testing.T) {
	t.Parallel()

	subs := make(chan Subscription, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub Subscription
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subs <- sub

		_ = conn.WriteJSON(model.CrawlEvent{CrawlID: sub.CrawlID, ParentURL: "a", ChildURLs: []string{"b"}})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{broken"))
		_ = conn.WriteJSON(model.CrawlEvent{CrawlID: sub.CrawlID, ParentURL: "b", ChildURLs: []string{"a"}})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	src := NewWebSocketSource(url, "crawl-1")
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	i := New()
	if err := i.Consume(ctx, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case sub := <-subs:
		if sub.Action != ActionSubscribe || sub.CrawlID != "crawl-1" {
			t.Errorf("unexpected subscription: %+v", sub)
		}
	default:
		t.Error("expected subscription message")
	}

	if i.Pending() != 2 {
		t.Errorf("expected 2 events queued, got %d", i.Pending())
	}
	if r := i.Tick(); r.Fingerprint.Nodes != 2 || r.Fingerprint.Edges != 2 {
		t.Errorf("unexpected fingerprint: %+v", r.Fingerprint)
	}
}

func TestWebSocketSource_DialFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	src := NewWebSocketSource(url, "crawl-1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := src.Next(ctx); err == nil {
		t.Error("expected dial error")
	}
	if err := src.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

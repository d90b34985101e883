package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nao1215/crawlgraph/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024
)

// ActionSubscribe is the action of a subscription request.
const ActionSubscribe = "subscribe"

// Subscription is the message sent after connecting to ask for the events
// of one crawl.
type Subscription struct {
	Action  string `json:"action"`
	CrawlID string `json:"CrawlID"`
}

// WebSocketOption configures a WebSocketSource.
type WebSocketOption func(*WebSocketSource)

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) WebSocketOption {
	return func(s *WebSocketSource) {
		s.dialer = d
	}
}

// WithHeader sets extra request headers for the handshake.
func WithHeader(h http.Header) WebSocketOption {
	return func(s *WebSocketSource) {
		s.header = h
	}
}

type message struct {
	ev  model.CrawlEvent
	err error
}

// WebSocketSource subscribes to a crawl on a websocket endpoint and yields
// the events pushed by the server.
type WebSocketSource struct {
	url     string
	crawlID string
	dialer  *websocket.Dialer
	header  http.Header

	once    sync.Once
	dialErr error
	conn    *websocket.Conn
	writeMu sync.Mutex

	msgs      chan message
	done      chan struct{}
	closeOnce sync.Once
	final     error
}

// NewWebSocketSource creates a source for the events of crawlID at url.
// The connection is made on the first call to Next.
func NewWebSocketSource(url, crawlID string, opts ...WebSocketOption) *WebSocketSource {
	s := &WebSocketSource{
		url:     url,
		crawlID: crawlID,
		dialer:  websocket.DefaultDialer,
		msgs:    make(chan message, 64),
		done:    make(chan struct{}),
		final:   io.EOF,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *WebSocketSource) Name() string { return "websocket" }

func (s *WebSocketSource) connect(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	s.conn = conn

	if err := s.write(func() error {
		return conn.WriteJSON(Subscription{Action: ActionSubscribe, CrawlID: s.crawlID})
	}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go s.readPump()
	go s.pingLoop()
	return nil
}

func (s *WebSocketSource) write(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return fn()
}

func (s *WebSocketSource) readPump() {
	defer close(s.msgs)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.final = fmt.Errorf("websocket read failed: %w", err)
				}
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage {
			continue
		}

		var m message
		if err := json.Unmarshal(data, &m.ev); err != nil {
			m.err = fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		select {
		case s.msgs <- m:
		case <-s.done:
			return
		}
	}
}

func (s *WebSocketSource) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			err := s.write(func() error {
				return s.conn.WriteMessage(websocket.PingMessage, nil)
			})
			if err != nil {
				return
			}
		}
	}
}

// Next implements Source. It returns io.EOF when the server closes the
// connection normally.
func (s *WebSocketSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	s.once.Do(func() { s.dialErr = s.connect(ctx) })
	if s.dialErr != nil {
		return model.CrawlEvent{}, s.dialErr
	}
	select {
	case <-ctx.Done():
		return model.CrawlEvent{}, ctx.Err()
	case <-s.done:
		return model.CrawlEvent{}, ErrSourceClosed
	case m, ok := <-s.msgs:
		if !ok {
			return model.CrawlEvent{}, s.final
		}
		return m.ev, m.err
	}
}

// Close sends a close frame and tears the connection down.
func (s *WebSocketSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := s.write(func() error {
			return s.conn.WriteMessage(websocket.CloseMessage, msg)
		})
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			err = werr
		}
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nao1215/crawlgraph/internal/metrics"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/render"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Frames queued per viewer before new ones are dropped
	sendBufferSize = 8
)

// Layout is the live layout a hub shows.
type Layout interface {
	Mount(ctx context.Context, s render.Surface)
	Unmount() error
	Frame() *render.Frame
	Report() *model.LayoutReport
	Ingest(ev model.CrawlEvent)
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithHubMetrics records viewer and frame metrics into r.
func WithHubMetrics(r *metrics.Registry) HubOption {
	return func(h *Hub) {
		h.metrics = r
	}
}

// Hub broadcasts frames to connected viewers.
type Hub struct {
	layout  Layout
	logger  *slog.Logger
	metrics *metrics.Registry

	register   chan *viewerClient
	unregister chan *viewerClient
	broadcast  chan []byte
	done       chan struct{}

	// clients and mounted are owned by Run.
	clients map[*viewerClient]struct{}
	mounted bool

	viewers atomic.Int64
}

// NewHub creates a hub for layout. Run must be called before viewers can
// connect.
func NewHub(layout Layout, opts ...HubOption) *Hub {
	h := &Hub{
		layout:     layout,
		logger:     slog.Default(),
		register:   make(chan *viewerClient),
		unregister: make(chan *viewerClient),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		clients:    make(map[*viewerClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Draw implements render.Surface. It never blocks the tick loop: when the
// broadcast queue is full the frame is dropped.
func (h *Hub) Draw(f *render.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		h.metrics.RecordFrame(false)
	}
	return nil
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	return int(h.viewers.Load())
}

// Run manages viewers until ctx is done. On exit every viewer is
// disconnected and the layout is unmounted.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.add(ctx, c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) add(ctx context.Context, c *viewerClient) {
	h.clients[c] = struct{}{}
	h.setViewers()
	h.logger.Debug("viewer connected", slog.String("viewer", c.id), slog.Int("viewers", len(h.clients)))

	if !h.mounted {
		h.layout.Mount(ctx, h)
		h.mounted = true
		h.logger.Info("layout mounted")
	}

	// The current state, so a viewer sees the graph before the next paint.
	data, err := json.Marshal(h.layout.Frame())
	if err != nil {
		h.logger.Warn("failed to encode frame", slog.String("error", err.Error()))
		return
	}
	c.enqueue(data, h.metrics)
}

func (h *Hub) remove(c *viewerClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.setViewers()
	h.logger.Debug("viewer disconnected", slog.String("viewer", c.id), slog.Int("viewers", len(h.clients)))

	if len(h.clients) == 0 {
		h.unmount()
	}
}

func (h *Hub) unmount() {
	if !h.mounted {
		return
	}
	h.mounted = false
	if err := h.layout.Unmount(); err != nil {
		h.logger.Warn("failed to unmount layout", slog.String("error", err.Error()))
		return
	}
	h.logger.Info("layout unmounted")
}

func (h *Hub) fanOut(msg []byte) {
	for c := range h.clients {
		c.enqueue(msg, h.metrics)
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.setViewers()
	h.unmount()
}

func (h *Hub) setViewers() {
	h.viewers.Store(int64(len(h.clients)))
	h.metrics.SetViewers(len(h.clients))
}

// serve registers conn as a viewer and pumps frames to it until either
// side closes.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &viewerClient{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// viewerClient is one connected browser.
type viewerClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *viewerClient) enqueue(msg []byte, m *metrics.Registry) {
	select {
	case c.send <- msg:
		m.RecordFrame(true)
	default:
		m.RecordFrame(false)
	}
}

// readPump discards viewer messages and unregisters the viewer when the
// connection ends.
func (c *viewerClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("viewer read failed", slog.String("viewer", c.id), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump sends frames to the viewer. Frames carry the whole state, so
// when several are queued only the newest is written.
func (c *viewerClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			for n := len(c.send); n > 0; n-- {
				next, ok := <-c.send
				if !ok {
					break
				}
				msg = next
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

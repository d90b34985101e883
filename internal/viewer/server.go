package viewer

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlgraph/internal/metrics"
	"github.com/nao1215/crawlgraph/internal/model"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// maxEventBody bounds a POST /api/events request.
const maxEventBody = 4 * 1024 * 1024

// Paths served by the viewer.
const (
	PathFrames  = "/ws"
	PathEvents  = "/events"
	PathMetrics = "/metrics"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger of the server and its hub.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes r on /metrics and records viewer metrics into it.
func WithMetrics(r *metrics.Registry) ServerOption {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithFeed enables the event subscription endpoint. Events posted to
// /api/events are published to it as well.
func WithFeed(f *Feed) ServerOption {
	return func(s *Server) {
		s.feed = f
	}
}

// WithTitle sets the page title.
func WithTitle(title string) ServerOption {
	return func(s *Server) {
		s.title = title
	}
}

// WithCheckOrigin sets the origin check for websocket upgrades. The default
// accepts same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// Server is the HTTP front of the live viewer.
type Server struct {
	layout   Layout
	hub      *Hub
	feed     *Feed
	metrics  *metrics.Registry
	logger   *slog.Logger
	title    string
	upgrader websocket.Upgrader
}

// NewServer creates a server showing layout.
func NewServer(layout Layout, opts ...ServerOption) *Server {
	s := &Server{
		layout: layout,
		logger: slog.Default(),
		title:  "crawlgraph",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.hub = NewHub(layout, WithHubLogger(s.logger), WithHubMetrics(s.metrics))
	return s
}

// Hub returns the frame hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes of the viewer.
func (s *Server) Handler(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Get("/", s.handlePage)
	router.Get(PathFrames, s.handleFrames)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Route("/api", func(r chi.Router) {
		r.Get("/frame", s.handleFrame)
		r.Get("/report", s.handleReport)
		r.Post("/events", s.handlePostEvents)
	})
	if s.feed != nil {
		router.Get(PathEvents, func(w http.ResponseWriter, r *http.Request) {
			conn, err := s.upgrader.Upgrade(w, r, nil)
			if err != nil {
				s.logger.Debug("event upgrade failed", slog.String("error", err.Error()))
				return
			}
			s.feed.serve(ctx, conn)
		})
	}
	if s.metrics != nil {
		router.Method(http.MethodGet, PathMetrics, s.metrics.Handler())
	}
	return router
}

// Serve runs the hub and serves HTTP on l until ctx is done, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("viewer listening", slog.String("addr", l.Addr().String()))
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("viewer server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

type pageData struct {
	Title      string
	FramePath  string
	Width      float64
	Height     float64
	HasMetrics bool
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	f := s.layout.Frame()
	data := pageData{
		Title:      s.title,
		FramePath:  PathFrames,
		Width:      f.Width,
		Height:     f.Height,
		HasMetrics: s.metrics != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Warn("failed to render page", slog.String("error", err.Error()))
	}
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("viewer upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.hub.serve(conn)
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.layout.Frame())
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.layout.Report())
}

// handlePostEvents accepts one event object or an array of events.
func (s *Server) handlePostEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusRequestEntityTooLarge)
		return
	}

	var events []model.CrawlEvent
	if err := json.Unmarshal(body, &events); err != nil {
		var ev model.CrawlEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			http.Error(w, "malformed crawl event", http.StatusBadRequest)
			return
		}
		events = []model.CrawlEvent{ev}
	}

	for _, ev := range events {
		s.layout.Ingest(ev)
		if s.feed == nil {
			continue
		}
		if err := s.feed.Publish(r.Context(), ev); err != nil {
			s.logger.Debug("failed to publish event",
				slog.String("parent", ev.ParentURL),
				slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(events)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

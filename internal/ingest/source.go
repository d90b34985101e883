package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/nao1215/crawlgraph/internal/model"
)

// Source produces crawl events. Next blocks until an event is available and
// returns io.EOF once the source is exhausted. An error wrapping
// ErrMalformedEvent means one message was skipped and Next may be called
// again; any other error ends the source.
type Source interface {
	Next(ctx context.Context) (model.CrawlEvent, error)
	Name() string
}

// Consume pumps src into the ingestor until the source is exhausted or ctx
// is done. Malformed messages are logged and skipped. Reaching the end of
// the source is not an error.
func (i *Ingestor) Consume(ctx context.Context, src Source) error {
	for {
		ev, err := src.Next(ctx)
		switch {
		case err == nil:
			i.Ingest(ev)
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrMalformedEvent):
			i.metrics.RecordSourceError(src.Name())
			i.logger.Warn("skipping malformed event",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			i.metrics.RecordSourceError(src.Name())
			return fmt.Errorf("%s source: %w", src.Name(), err)
		}
	}
}

// SliceSource replays a fixed list of events.
type SliceSource struct {
	mu     sync.Mutex
	events []model.CrawlEvent
	next   int
}

// NewSliceSource creates a source over events. The slice is not copied.
func NewSliceSource(events []model.CrawlEvent) *SliceSource {
	return &SliceSource{events: events}
}

// Name implements Source.
func (s *SliceSource) Name() string { return "slice" }

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	if err := ctx.Err(); err != nil {
		return model.CrawlEvent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.events) {
		return model.CrawlEvent{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev.Clone(), nil
}

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 4 * 1024 * 1024

// ReaderSource decodes events from a JSON array or from JSON Lines. The
// format is chosen by the first non-space byte.
type ReaderSource struct {
	name   string
	r      *bufio.Reader
	closer io.Closer

	once    sync.Once
	array   bool
	dec     *json.Decoder
	scanner *bufio.Scanner
	line    int
	err     error
}

// NewReaderSource creates a source reading from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{name: "reader", r: bufio.NewReader(r)}
}

// NewFileSource opens path for reading. "-" reads standard input.
func NewFileSource(path string) (*ReaderSource, error) {
	if path == "-" {
		s := NewReaderSource(os.Stdin)
		s.name = "stdin"
		return s, nil
	}
	f, err := os.Open(path) //nolint:gosec // path is user supplied on purpose
	if err != nil {
		return nil, fmt.Errorf("failed to open event file: %w", err)
	}
	s := NewReaderSource(f)
	s.name = "file"
	s.closer = f
	return s, nil
}

// Name implements Source.
func (s *ReaderSource) Name() string { return s.name }

// Close closes the underlying file, if any.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *ReaderSource) init() {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			s.err = err
			return
		}
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			continue
		}
		if err := s.r.UnreadByte(); err != nil {
			s.err = err
			return
		}
		s.array = b == '['
		break
	}

	if !s.array {
		s.scanner = bufio.NewScanner(s.r)
		s.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		return
	}
	s.dec = json.NewDecoder(s.r)
	if _, err := s.dec.Token(); err != nil {
		s.err = fmt.Errorf("failed to read event array: %w", err)
	}
}

// Next implements Source.
func (s *ReaderSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	s.once.Do(s.init)
	if err := ctx.Err(); err != nil {
		return model.CrawlEvent{}, err
	}
	if s.err != nil {
		return model.CrawlEvent{}, s.err
	}
	if s.array {
		return s.nextElement()
	}
	return s.nextLine()
}

func (s *ReaderSource) nextElement() (model.CrawlEvent, error) {
	if !s.dec.More() {
		s.err = io.EOF
		return model.CrawlEvent{}, io.EOF
	}
	s.line++
	var ev model.CrawlEvent
	if err := s.dec.Decode(&ev); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.err = fmt.Errorf("failed to decode event array: %w", err)
			return model.CrawlEvent{}, s.err
		}
		return model.CrawlEvent{}, fmt.Errorf("%w: element %d: %v", ErrMalformedEvent, s.line, err)
	}
	return ev, nil
}

func (s *ReaderSource) nextLine() (model.CrawlEvent, error) {
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev model.CrawlEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return model.CrawlEvent{}, fmt.Errorf("%w: line %d: %v", ErrMalformedEvent, s.line, err)
		}
		return ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("failed to read events: %w", err)
		return model.CrawlEvent{}, s.err
	}
	s.err = io.EOF
	return model.CrawlEvent{}, io.EOF
}

// ChannelSource reads events from a channel until it is closed.
type ChannelSource struct {
	name string
	ch   <-chan model.CrawlEvent
}

// NewChannelSource creates a source over ch.
func NewChannelSource(name string, ch <-chan model.CrawlEvent) *ChannelSource {
	return &ChannelSource{name: name, ch: ch}
}

// Name implements Source.
func (s *ChannelSource) Name() string { return s.name }

// Next implements Source.
func (s *ChannelSource) Next(ctx context.Context) (model.CrawlEvent, error) {
	select {
	case <-ctx.Done():
		return model.CrawlEvent{}, ctx.Err()
	case ev, ok := <-s.ch:
		if !ok {
			return model.CrawlEvent{}, io.EOF
		}
		return ev, nil
	}
}

package render

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/nao1215/crawlgraph/internal/force"
	"github.com/nao1215/crawlgraph/internal/graph"
)

// Surface is a drawing target for frames.
// A surface that also implements io.Closer is closed on Unmount.
type Surface interface {
	Draw(f *Frame) error
}

// Style controls how primitives look.
type Style struct {
	NodeRadius  float64
	NodeFill    string
	LinkStroke  string
	StrokeWidth float64
}

// DefaultStyle draws red nodes of radius 5 and black links of width 2.
func DefaultStyle() Style {
	return Style{
		NodeRadius:  5,
		NodeFill:    "red",
		LinkStroke:  "black",
		StrokeWidth: 2,
	}
}

// lineWidth thickens repeated links, up to three times the base width.
func (s Style) lineWidth(multiplicity int) float64 {
	if multiplicity < 1 {
		multiplicity = 1
	}
	return math.Min(s.StrokeWidth+float64(multiplicity-1), 3*s.StrokeWidth)
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithStyle sets the primitive style.
func WithStyle(style Style) BinderOption {
	return func(b *Binder) {
		b.style = style
	}
}

// WithBinderLogger sets the logger used for draw failures.
func WithBinderLogger(logger *slog.Logger) BinderOption {
	return func(b *Binder) {
		b.logger = logger
	}
}

// Binder maps graph entities to primitives and paints them.
//
// Sync and Paint are called from the tick goroutine. Mount and Unmount may
// be called from any goroutine.
type Binder struct {
	width  float64
	height float64
	style  Style
	logger *slog.Logger

	circles []Circle
	byID    map[string]int
	lines   []Line
	seq     uint64

	mu      sync.Mutex
	surface Surface
}

// NewBinder creates a binder for a canvas of the given size.
func NewBinder(width, height float64, opts ...BinderOption) *Binder {
	b := &Binder{
		width:  width,
		height: height,
		style:  DefaultStyle(),
		logger: slog.Default(),
		byID:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mount attaches a surface. A previously mounted surface is released.
func (b *Binder) Mount(s Surface) {
	b.mu.Lock()
	old := b.surface
	b.surface = s
	b.mu.Unlock()
	if old != nil && old != s {
		b.release(old)
	}
}

// Unmount detaches the current surface, closing it when it is an
// io.Closer.
func (b *Binder) Unmount() {
	b.mu.Lock()
	old := b.surface
	b.surface = nil
	b.mu.Unlock()
	if old != nil {
		b.release(old)
	}
}

func (b *Binder) release(s Surface) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			b.logger.Warn("failed to close surface", slog.String("error", err.Error()))
		}
	}
}

// Mounted reports whether a surface is attached.
func (b *Binder) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface != nil
}

// Sync reconciles the primitive table with a graph snapshot. New nodes get
// a circle at the canvas center; circles of vanished nodes are dropped.
// Lines follow the edge sequence one to one.
func (b *Binder) Sync(nodes []graph.Node, edges []graph.Edge) {
	keep := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		keep[n.ID] = struct{}{}
	}

	circles := b.circles[:0]
	for _, c := range b.circles {
		if _, ok := keep[c.ID]; ok {
			circles = append(circles, c)
		}
	}
	b.circles = circles
	b.reindex()

	for _, n := range nodes {
		if _, ok := b.byID[n.ID]; ok {
			continue
		}
		b.byID[n.ID] = len(b.circles)
		b.circles = append(b.circles, Circle{
			ID:   n.ID,
			Key:  ElementID(n.ID),
			CX:   b.width / 2,
			CY:   b.height / 2,
			R:    b.style.NodeRadius,
			Fill: b.style.NodeFill,
		})
	}

	lines := make([]Line, len(edges))
	for i, e := range edges {
		if i < len(b.lines) && b.lines[i].Source == e.Source && b.lines[i].Target == e.Target {
			lines[i] = b.lines[i]
		} else {
			lines[i] = Line{Source: e.Source, Target: e.Target, Stroke: b.style.LinkStroke}
		}
		lines[i].Multiplicity = e.Multiplicity
		lines[i].Width = b.style.lineWidth(e.Multiplicity)
	}
	b.lines = lines
}

func (b *Binder) reindex() {
	clear(b.byID)
	for i, c := range b.circles {
		b.byID[c.ID] = i
	}
}

// Paint copies body positions into the primitives and draws a frame on the
// mounted surface. It returns false without drawing when nothing is
// mounted or the surface fails; the failure is logged and the next paint
// tries again.
func (b *Binder) Paint(bodies []force.Body) bool {
	b.mu.Lock()
	s := b.surface
	b.mu.Unlock()
	if s == nil {
		return false
	}

	b.update(bodies)
	b.seq++
	if err := s.Draw(b.frame()); err != nil {
		b.logger.Warn("failed to draw frame",
			slog.Uint64("seq", b.seq),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// Frame updates positions and returns the current frame without drawing.
func (b *Binder) Frame(bodies []force.Body) *Frame {
	b.update(bodies)
	return b.frame()
}

func (b *Binder) update(bodies []force.Body) {
	for _, body := range bodies {
		if i, ok := b.byID[body.ID]; ok {
			b.circles[i].CX = body.X
			b.circles[i].CY = body.Y
		}
	}
	for i := range b.lines {
		l := &b.lines[i]
		if s, ok := b.byID[l.Source]; ok {
			l.X1, l.Y1 = b.circles[s].CX, b.circles[s].CY
		}
		if t, ok := b.byID[l.Target]; ok {
			l.X2, l.Y2 = b.circles[t].CX, b.circles[t].CY
		}
	}
}

func (b *Binder) frame() *Frame {
	return &Frame{
		Seq:     b.seq,
		Width:   b.width,
		Height:  b.height,
		Circles: append(make([]Circle, 0, len(b.circles)), b.circles...),
		Lines:   append(make([]Line, 0, len(b.lines)), b.lines...),
	}
}

// Len returns the number of circles and lines.
func (b *Binder) Len() (int, int) {
	return len(b.circles), len(b.lines)
}

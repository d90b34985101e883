package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/crawlgraph/internal/force"
	"github.com/nao1215/crawlgraph/internal/graph"
	"github.com/nao1215/crawlgraph/internal/metrics"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/render"
)

// DefaultInterval is the tick period used by Mount when no ticker factory
// is configured. It matches a 60 Hz display.
const DefaultInterval = time.Second / 60

// TickResult describes what one tick did.
type TickResult struct {
	// Drained is the number of events taken from the queue.
	Drained int
	// Dropped counts drained events without a parent.
	Dropped int
	// Reset is true when the structure changed and the simulator was reset.
	Reset bool
	// Stepped is true when the simulator advanced.
	Stepped bool
	// Painted is true when a frame reached the surface.
	Painted bool
	// Fingerprint is the graph structure after the tick.
	Fingerprint graph.Fingerprint
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithSimulatorOptions passes options to the force simulator.
func WithSimulatorOptions(opts ...force.Option) Option {
	return func(i *Ingestor) {
		i.simOpts = append(i.simOpts, opts...)
	}
}

// WithBinderOptions passes options to the render binder.
func WithBinderOptions(opts ...render.BinderOption) Option {
	return func(i *Ingestor) {
		i.binderOpts = append(i.binderOpts, opts...)
	}
}

// WithTicker sets how Mount creates its ticker.
func WithTicker(factory TickerFactory) Option {
	return func(i *Ingestor) {
		i.newTicker = factory
	}
}

// WithInterval makes Mount tick every d.
func WithInterval(d time.Duration) Option {
	return func(i *Ingestor) {
		i.newTicker = func() Ticker { return NewTimeTicker(d) }
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithMetrics records ingest and layout metrics into r.
func WithMetrics(r *metrics.Registry) Option {
	return func(i *Ingestor) {
		i.metrics = r
	}
}

// Ingestor turns a stream of crawl events into a continuously laid out
// graph.
type Ingestor struct {
	logger     *slog.Logger
	metrics    *metrics.Registry
	newTicker  TickerFactory
	simOpts    []force.Option
	binderOpts []render.BinderOption

	queueMu sync.Mutex
	pending []model.CrawlEvent

	// tickMu serialises Tick, Settle and Report. The tick loop is the
	// only caller while mounted.
	tickMu   sync.Mutex
	graph    *graph.Model
	sim      *force.Simulator
	binder   *render.Binder
	events   int
	crawlIDs map[string]struct{}
	restored int

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an ingestor with an empty graph.
func New(opts ...Option) *Ingestor {
	i := &Ingestor{
		logger:    slog.Default(),
		newTicker: func() Ticker { return NewTimeTicker(DefaultInterval) },
		graph:     graph.New(),
		crawlIDs:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}

	simOpts := append([]force.Option{force.WithLogger(i.logger)}, i.simOpts...)
	i.sim = force.New(simOpts...)
	p := i.sim.Params()
	binderOpts := append([]render.BinderOption{render.WithBinderLogger(i.logger)}, i.binderOpts...)
	i.binder = render.NewBinder(p.Width, p.Height, binderOpts...)
	return i
}

// Ingest queues an event for the next tick. It is safe for concurrent use.
func (i *Ingestor) Ingest(ev model.CrawlEvent) {
	i.queueMu.Lock()
	i.pending = append(i.pending, ev)
	n := len(i.pending)
	i.queueMu.Unlock()
	i.metrics.SetPending(n)
}

// Pending returns the number of queued events.
func (i *Ingestor) Pending() int {
	i.queueMu.Lock()
	defer i.queueMu.Unlock()
	return len(i.pending)
}

func (i *Ingestor) drain() []model.CrawlEvent {
	i.queueMu.Lock()
	batch := i.pending
	i.pending = nil
	i.queueMu.Unlock()
	i.metrics.SetPending(0)
	return batch
}

// Tick merges queued events, advances the simulation by one step and
// repaints.
func (i *Ingestor) Tick() TickResult {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()
	return i.tick()
}

func (i *Ingestor) tick() TickResult {
	batch := i.drain()
	res := TickResult{Drained: len(batch)}

	before := i.graph.Fingerprint()
	for _, ev := range batch {
		d := i.graph.Merge(ev)
		dropped := !ev.HasParent()
		if dropped {
			res.Dropped++
		} else {
			i.events++
			if ev.CrawlID != "" {
				i.crawlIDs[ev.CrawlID] = struct{}{}
			}
		}
		i.metrics.RecordEvent(d.Structural(), dropped)
	}
	if res.Dropped > 0 {
		i.logger.Debug("dropped events without parent", slog.Int("count", res.Dropped))
	}

	after := i.graph.Fingerprint()
	if after != before {
		nodes, edges := i.graph.Snapshot()
		i.sim.Reset(nodes, edges)
		i.binder.Sync(nodes, edges)
		res.Reset = true
		i.metrics.UpdateGraph(after.Nodes, after.Edges)
	}
	res.Fingerprint = after

	start := time.Now()
	res.Stepped = i.sim.Step()
	stats := i.sim.Stats()
	i.metrics.RecordTick(res.Reset, time.Since(start), stats.Alpha, stats.Converged)
	i.metrics.AddRestored(stats.Restored - i.restored)
	i.restored = stats.Restored

	if res.Stepped || res.Drained > 0 {
		res.Painted = i.binder.Paint(i.sim.Bodies())
		i.metrics.RecordPaint(res.Painted)
	}
	return res
}

// Settle ticks until the queue is empty and the simulation has converged,
// or ctx is done. It returns the number of ticks run.
func (i *Ingestor) Settle(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		res := i.Tick()
		if res.Drained == 0 && !res.Stepped && i.Pending() == 0 {
			break
		}
		n++
	}
	return n
}

// Mount attaches a surface and starts the tick loop. Mounting while
// already mounted swaps the surface and keeps the loop running.
func (i *Ingestor) Mount(ctx context.Context, surface render.Surface) {
	i.loopMu.Lock()
	defer i.loopMu.Unlock()

	i.binder.Mount(surface)
	if i.running() {
		return
	}
	if i.cancel != nil {
		// The loop ended with its parent context.
		i.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	i.cancel = cancel
	i.done = done
	ticker := i.newTicker()
	go i.loop(ctx, ticker, done)
	i.logger.Debug("ingestor mounted")
}

func (i *Ingestor) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			// A cancel racing with a fire must win.
			if ctx.Err() != nil {
				return
			}
			i.Tick()
		}
	}
}

// Unmount stops the tick loop, waits for it to exit and releases the
// surface.
func (i *Ingestor) Unmount() error {
	i.loopMu.Lock()
	defer i.loopMu.Unlock()

	if i.done == nil {
		return ErrNotMounted
	}
	i.cancel()
	<-i.done
	i.cancel = nil
	i.done = nil
	i.binder.Unmount()
	i.logger.Debug("ingestor unmounted")
	return nil
}

// Mounted reports whether the tick loop is running.
func (i *Ingestor) Mounted() bool {
	i.loopMu.Lock()
	defer i.loopMu.Unlock()
	return i.running()
}

// running reports whether the loop goroutine is alive. loopMu must be held.
func (i *Ingestor) running() bool {
	if i.done == nil {
		return false
	}
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}

// Frame returns the current frame without drawing it.
func (i *Ingestor) Frame() *render.Frame {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()
	return i.binder.Frame(i.sim.Bodies())
}

// Stats returns the simulator statistics.
func (i *Ingestor) Stats() force.Stats {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()
	return i.sim.Stats()
}

// Report summarises the current layout.
func (i *Ingestor) Report() *model.LayoutReport {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()

	nodes, edges := i.graph.Snapshot()
	degrees := i.graph.Degrees()
	p := i.sim.Params()

	r := &model.LayoutReport{
		GeneratedAt: time.Now().UTC(),
		Width:       int(p.Width),
		Height:      int(p.Height),
		Events:      i.events,
		EdgeCount:   len(edges),
		Steps:       i.sim.Steps(),
		Alpha:       i.sim.Alpha(),
		Converged:   i.sim.Converged(),
		Nodes:       make([]model.NodePosition, 0, len(nodes)),
		Links:       make([]model.LinkSummary, 0, len(edges)),
	}
	if len(i.crawlIDs) == 1 {
		for id := range i.crawlIDs {
			r.CrawlID = id
		}
	}

	for _, n := range nodes {
		pos := model.NodePosition{URL: n.ID, Degree: degrees[n.Index]}
		if b, ok := i.sim.Body(n.ID); ok {
			pos.X, pos.Y = b.X, b.Y
		}
		r.Nodes = append(r.Nodes, pos)
	}

	type pair struct{ s, t int }
	seen := make(map[pair]struct{}, len(edges))
	for _, e := range edges {
		k := pair{e.SourceIndex, e.TargetIndex}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		r.Links = append(r.Links, model.LinkSummary{Source: e.Source, Target: e.Target, Count: e.Multiplicity})
	}
	return r
}

package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nao1215/crawlgraph/internal/force"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/render"
)

func loadSample(t *testing.T, i *Ingestor) {
	t.Helper()
	if err := i.Consume(context.Background(), NewSliceSource(SampleEvents())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIngestor_SampleScenario(t *testing.T) {
	t.Parallel()

	i := New()
	loadSample(t, i)
	if i.Pending() != 6 {
		t.Fatalf("expected 6 pending events, got %d", i.Pending())
	}

	ticks := i.Settle(context.Background())
	if ticks > 300 {
		t.Errorf("expected convergence within 300 ticks, got %d", ticks)
	}

	r := i.Report()
	if r.NodeCount() != 6 {
		t.Errorf("expected 6 nodes, got %d", r.NodeCount())
	}
	if r.EdgeCount == 0 {
		t.Error("expected edges")
	}
	if r.EdgeCount != 21 || r.DuplicateEdges() != 1 {
		t.Errorf("expected 21 edges with 1 duplicate, got %d and %d", r.EdgeCount, r.DuplicateEdges())
	}
	if !r.Converged || r.Steps > 300 {
		t.Errorf("expected converged within 300 steps, got converged=%v steps=%d", r.Converged, r.Steps)
	}
	if r.CrawlID != SampleCrawlID {
		t.Errorf("expected crawl id %q, got %q", SampleCrawlID, r.CrawlID)
	}
	if r.Events != 6 {
		t.Errorf("expected 6 events, got %d", r.Events)
	}

	for a := range r.Nodes {
		pa := r.Nodes[a]
		if math.IsNaN(pa.X) || math.IsInf(pa.X, 0) || math.IsNaN(pa.Y) || math.IsInf(pa.Y, 0) {
			t.Fatalf("expected finite position for %s", pa.URL)
		}
		for b := a + 1; b < len(r.Nodes); b++ {
			pb := r.Nodes[b]
			if pa.X == pb.X && pa.Y == pb.Y {
				t.Errorf("expected %s and %s at distinct positions", pa.URL, pb.URL)
			}
		}
	}
}

func TestIngestor_Tick(t *testing.T) {
	t.Parallel()

	t.Run("structural events reset the simulation", func(t *testing.T) {
		t.Parallel()

		i := New()
		i.Ingest(model.CrawlEvent{ParentURL: "a", ChildURLs: []string{"b"}})
		res := i.Tick()
		if res.Drained != 1 || !res.Reset || !res.Stepped {
			t.Errorf("unexpected result: %+v", res)
		}
		if res.Painted {
			t.Error("expected no paint without surface")
		}
		if res.Fingerprint.Nodes != 2 || res.Fingerprint.Edges != 1 {
			t.Errorf("unexpected fingerprint: %+v", res.Fingerprint)
		}
	})

	t.Run("dropped events are counted", func(t *testing.T) {
		t.Parallel()

		i := New()
		i.Ingest(model.CrawlEvent{ChildURLs: []string{"b"}})
		res := i.Tick()
		if res.Dropped != 1 || res.Reset {
			t.Errorf("unexpected result: %+v", res)
		}
		if got := i.Report().Events; got != 0 {
			t.Errorf("expected dropped event not counted, got %d", got)
		}
	})

	t.Run("converged layout repaints on non structural events", func(t *testing.T) {
		t.Parallel()

		i := New(WithTicker(func() Ticker { return NewManualTicker() }))
		loadSample(t, i)
		i.Settle(context.Background())

		rec := render.NewRecorder(0)
		i.Mount(context.Background(), rec)
		defer i.Unmount() //nolint:errcheck

		before := i.Frame()
		if res := i.Tick(); res.Painted || res.Stepped {
			t.Errorf("expected idle tick on converged layout, got %+v", res)
		}

		i.Ingest(model.CrawlEvent{ParentURL: "https://example.com"})
		res := i.Tick()
		if res.Reset || res.Stepped || !res.Painted {
			t.Errorf("expected repaint without reset, got %+v", res)
		}
		f, ok := rec.Last()
		if !ok {
			t.Fatal("expected a frame")
		}
		for k := range f.Circles {
			if f.Circles[k].CX != before.Circles[k].CX || f.Circles[k].CY != before.Circles[k].CY {
				t.Errorf("expected %s not to move", f.Circles[k].ID)
			}
		}
	})

	t.Run("isolated node leaves existing nodes in place", func(t *testing.T) {
		t.Parallel()

		i := New()
		loadSample(t, i)
		i.Settle(context.Background())
		before := i.Report()

		i.Ingest(model.CrawlEvent{ParentURL: "https://example.com/isolated"})
		res := i.Tick()
		if !res.Reset {
			t.Fatal("expected reset for the new node")
		}
		if res.Stepped || !i.Stats().Converged {
			t.Errorf("expected settled layout not to reheat, got %+v", res)
		}
		for range 50 {
			i.Tick()
		}
		i.Settle(context.Background())

		after := i.Report()
		if after.NodeCount() != before.NodeCount()+1 {
			t.Fatalf("expected one more node, got %d", after.NodeCount())
		}
		pos := make(map[string]model.NodePosition, len(after.Nodes))
		for _, n := range after.Nodes {
			pos[n.URL] = n
		}
		for _, n := range before.Nodes {
			got := pos[n.URL]
			if d := math.Hypot(got.X-n.X, got.Y-n.Y); d > 1e-9 {
				t.Errorf("expected %s in place, moved by %v", n.URL, d)
			}
		}
	})
}

func TestIngestor_MountUnmount(t *testing.T) {
	t.Parallel()

	ticker := NewManualTicker()
	i := New(WithTicker(func() Ticker { return ticker }))
	loadSample(t, i)

	rec := render.NewRecorder(0)
	i.Mount(context.Background(), rec)
	if !i.Mounted() {
		t.Fatal("expected mounted")
	}

	for range 5 {
		if !ticker.Fire() {
			t.Fatal("expected tick to be delivered")
		}
	}
	if err := i.Unmount(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Len() != 5 {
		t.Errorf("expected 5 frames, got %d", rec.Len())
	}
	if !rec.Closed() {
		t.Error("expected surface released")
	}

	stats := i.Stats()
	frame := i.Frame()
	if ticker.Fire() {
		t.Error("expected fire after unmount to be refused")
	}
	if got := i.Stats(); got.Steps != stats.Steps || got.Alpha != stats.Alpha {
		t.Errorf("expected no steps after unmount, got %+v want %+v", got, stats)
	}
	after := i.Frame()
	for k := range frame.Circles {
		if frame.Circles[k] != after.Circles[k] {
			t.Errorf("expected %s not to move after unmount", frame.Circles[k].ID)
		}
	}
	if rec.Len() != 5 {
		t.Errorf("expected no frames after unmount, got %d", rec.Len())
	}

	if err := i.Unmount(); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
}

func TestIngestor_MountCancelledContext(t *testing.T) {
	t.Parallel()

	ticker := NewManualTicker()
	i := New(WithTicker(func() Ticker { return ticker }))
	ctx, cancel := context.WithCancel(context.Background())
	i.Mount(ctx, render.NewRecorder(0))
	cancel()

	if err := i.Unmount(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i.Mounted() {
		t.Error("expected unmounted")
	}
}

func TestIngestor_SimulatorOptions(t *testing.T) {
	t.Parallel()

	p := force.DefaultParams()
	p.Width, p.Height = 800, 600
	i := New(WithSimulatorOptions(force.WithParams(p)))

	r := i.Report()
	if r.Width != 800 || r.Height != 600 {
		t.Errorf("expected 800x600 canvas, got %dx%d", r.Width, r.Height)
	}
	if f := i.Frame(); f.Width != 800 || f.Height != 600 {
		t.Errorf("expected frame to use canvas size, got %vx%v", f.Width, f.Height)
	}
}

func TestIngestor_RemountAfterContextEnds(t *testing.T) {
	t.Parallel()

	var tickers []*ManualTicker
	i := New(WithTicker(func() Ticker {
		tk := NewManualTicker()
		tickers = append(tickers, tk)
		return tk
	}))
	loadSample(t, i)

	ctx, cancel := context.WithCancel(context.Background())
	i.Mount(ctx, render.NewRecorder(0))
	cancel()

	deadline := time.Now().Add(time.Second)
	for i.Mounted() {
		if time.Now().After(deadline) {
			t.Fatal("expected loop to stop with its context")
		}
		time.Sleep(time.Millisecond)
	}

	rec := render.NewRecorder(0)
	i.Mount(context.Background(), rec)
	if !i.Mounted() {
		t.Fatal("expected mount to restart the loop")
	}
	if len(tickers) != 2 {
		t.Fatalf("expected a fresh ticker, got %d tickers", len(tickers))
	}
	if !tickers[1].Fire() {
		t.Fatal("expected tick to be delivered")
	}
	if err := i.Unmount(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Len() != 1 {
		t.Errorf("expected 1 frame, got %d", rec.Len())
	}
}

package force

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/nao1215/crawlgraph/internal/graph"
	"github.com/nao1215/crawlgraph/internal/model"
)

const root = "https://example.com"

// sampleGraph is the six-page example.com crawl.
func sampleGraph() *graph.Model {
	m := graph.New()
	events := []model.CrawlEvent{
		{ParentURL: root, ChildURLs: []string{root + "/", root + "/cloudformation-dynamodb-data-ingest/", root + "/relational-data-in-dynamodb/", root + "/serverless-acceptance-test-environments-jest/", root + "/docker-git-clone/"}},
		{ParentURL: root + "/cloudformation-dynamodb-data-ingest/", ChildURLs: []string{root + "/", root + "/relational-data-in-dynamodb/", root + "/relational-data-in-dynamodb/"}},
		{ParentURL: root + "/serverless-acceptance-test-environments-jest/", ChildURLs: []string{root + "/", root + "/docker-git-clone/", root + "/relational-data-in-dynamodb/"}},
		{ParentURL: root + "/docker-git-clone/", ChildURLs: []string{root + "/", root + "/serverless-acceptance-test-environments-jest/"}},
		{ParentURL: root + "/relational-data-in-dynamodb/", ChildURLs: []string{root + "/", root + "/serverless-acceptance-test-environments-jest/", root + "/cloudformation-dynamodb-data-ingest/"}},
		{ParentURL: root + "/", ChildURLs: []string{root + "/", root + "/cloudformation-dynamodb-data-ingest/", root + "/relational-data-in-dynamodb/", root + "/serverless-acceptance-test-environments-jest/", root + "/docker-git-clone/"}},
	}
	for _, ev := range events {
		m.Merge(ev)
	}
	return m
}

func resetFrom(s *Simulator, m *graph.Model) {
	nodes, edges := m.Snapshot()
	s.Reset(nodes, edges)
}

func allFinite(bodies []Body) bool {
	for _, b := range bodies {
		if !finite(b.X) || !finite(b.Y) || !finite(b.VX) || !finite(b.VY) {
			return false
		}
	}
	return true
}

func TestSimulator_SampleConverges(t *testing.T) {
	t.Parallel()

	s := New()
	resetFrom(s, sampleGraph())

	steps := s.Run(context.Background(), 0)

	if steps != 300 {
		t.Errorf("expected convergence in 300 steps, got %d", steps)
	}
	if !s.Converged() {
		t.Fatal("expected simulator to be converged")
	}
	if s.Alpha() >= s.Params().AlphaMin {
		t.Errorf("expected alpha below %v, got %v", s.Params().AlphaMin, s.Alpha())
	}

	bodies := s.Bodies()
	if len(bodies) != 6 {
		t.Fatalf("expected 6 bodies, got %d", len(bodies))
	}
	if !allFinite(bodies) {
		t.Fatal("expected finite positions")
	}
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := math.Hypot(bodies[i].X-bodies[j].X, bodies[i].Y-bodies[j].Y)
			if d < 1 {
				t.Errorf("expected %s and %s to be apart, distance %v", bodies[i].ID, bodies[j].ID, d)
			}
		}
	}
}

func TestSimulator_StableAfterConvergence(t *testing.T) {
	t.Parallel()

	s := New()
	resetFrom(s, sampleGraph())
	s.Run(context.Background(), 0)
	before := s.Bodies()

	for range 10 {
		if s.Step() {
			t.Fatal("expected step on converged simulator to be a no-op")
		}
	}

	after := s.Bodies()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("body %s moved after convergence: %+v -> %+v", before[i].ID, before[i], after[i])
		}
	}
}

func TestSimulator_ResetKeepsKnownBodies(t *testing.T) {
	t.Parallel()

	t.Run("isolated node leaves a settled layout in place", func(t *testing.T) {
		t.Parallel()

		m := sampleGraph()
		s := New()
		resetFrom(s, m)
		s.Run(context.Background(), 0)
		before := s.Bodies()
		steps, alpha := s.Steps(), s.Alpha()

		m.Merge(model.CrawlEvent{ParentURL: "https://example.com/isolated"})
		resetFrom(s, m)

		if !s.Converged() || s.Steps() != steps || s.Alpha() != alpha {
			t.Errorf("expected no reheat, got steps=%d alpha=%v converged=%v", s.Steps(), s.Alpha(), s.Converged())
		}
		if n := s.Run(context.Background(), 100); n != 0 {
			t.Errorf("expected settled layout to stay converged, ran %d steps", n)
		}
		for _, b := range before {
			got, ok := s.Body(b.ID)
			if !ok {
				t.Fatalf("expected body %s to survive reset", b.ID)
			}
			if d := math.Hypot(got.X-b.X, got.Y-b.Y); d > 1e-9 {
				t.Errorf("expected %s in place, moved by %v", b.ID, d)
			}
		}

		iso, ok := s.Body("https://example.com/isolated")
		if !ok {
			t.Fatal("expected isolated node to be placed")
		}
		if !finite(iso.X) || !finite(iso.Y) {
			t.Fatalf("expected finite position, got %+v", iso)
		}
		for _, b := range before {
			if d := math.Hypot(iso.X-b.X, iso.Y-b.Y); d < 2*s.Params().NodeRadius {
				t.Errorf("expected isolated node clear of %s, distance %v", b.ID, d)
			}
		}
	})

	t.Run("linked node reheats", func(t *testing.T) {
		t.Parallel()

		m := sampleGraph()
		s := New()
		resetFrom(s, m)
		s.Run(context.Background(), 0)
		before := s.Bodies()

		m.Merge(model.CrawlEvent{ParentURL: root + "/", ChildURLs: []string{root + "/new/"}})
		resetFrom(s, m)

		if s.Alpha() != 1 {
			t.Errorf("expected alpha reheated to 1, got %v", s.Alpha())
		}
		if s.Steps() != 0 || s.Converged() {
			t.Errorf("expected fresh run, got steps %d converged %v", s.Steps(), s.Converged())
		}
		for _, b := range before {
			got, _ := s.Body(b.ID)
			if got != b {
				t.Errorf("expected %s unchanged at reset, got %+v want %+v", b.ID, got, b)
			}
		}
	})

	t.Run("first isolated node starts a run", func(t *testing.T) {
		t.Parallel()

		m := graph.New()
		m.Merge(model.CrawlEvent{ParentURL: "https://example.com/"})
		s := New()
		resetFrom(s, m)
		if s.Alpha() != 1 || s.Converged() {
			t.Errorf("expected a fresh run, got alpha=%v converged=%v", s.Alpha(), s.Converged())
		}
	})
}

func TestSimulator_Termination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params func(p *Params)
		want   int
	}{
		{
			name:   "default decay",
			params: func(*Params) {},
			want:   300,
		},
		{
			name:   "one percent decay per step",
			params: func(p *Params) { p.AlphaDecay = 0.01 },
			want:   688,
		},
		{
			name: "max steps bound",
			params: func(p *Params) {
				p.AlphaDecay = 0.0001
				p.MaxSteps = 50
			},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := DefaultParams()
			tt.params(&p)
			s := New(WithParams(p))
			resetFrom(s, sampleGraph())

			if got := s.Run(context.Background(), 0); got != tt.want {
				t.Errorf("expected %d steps, got %d", tt.want, got)
			}
			if !s.Converged() {
				t.Error("expected converged")
			}
		})
	}
}

func TestSimulator_RunHonoursLimitAndContext(t *testing.T) {
	t.Parallel()

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		s := New()
		resetFrom(s, sampleGraph())
		if got := s.Run(context.Background(), 25); got != 25 {
			t.Errorf("expected 25 steps, got %d", got)
		}
		if s.Converged() {
			t.Error("expected simulation still running")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := New()
		resetFrom(s, sampleGraph())
		if got := s.Run(ctx, 0); got != 0 {
			t.Errorf("expected no steps, got %d", got)
		}
	})
}

func TestSimulator_CoincidentBodies(t *testing.T) {
	t.Parallel()

	m := graph.New()
	m.Merge(model.CrawlEvent{ParentURL: "a", ChildURLs: []string{"b", "c", "d"}})
	s := New()
	resetFrom(s, m)
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Place(id, 250, 250)
	}

	s.Run(context.Background(), 0)

	bodies := s.Bodies()
	if !allFinite(bodies) {
		t.Fatalf("expected finite positions, got %+v", bodies)
	}
	for i := 1; i < len(bodies); i++ {
		if bodies[i].X == bodies[0].X && bodies[i].Y == bodies[0].Y {
			t.Errorf("expected %s to separate from %s", bodies[i].ID, bodies[0].ID)
		}
	}
}

func TestSimulator_BarnesHut(t *testing.T) {
	t.Parallel()

	m := graph.New()
	for i := range 150 {
		m.Merge(model.CrawlEvent{
			ParentURL: fmt.Sprintf("n%d", i),
			ChildURLs: []string{fmt.Sprintf("n%d", (i+1)%150)},
		})
	}
	s := New()
	resetFrom(s, m)

	s.Run(context.Background(), 100)

	stats := s.Stats()
	if !stats.BarnesHut {
		t.Error("expected quadtree charge for 150 bodies")
	}
	if stats.Bodies != 150 || stats.Links != 150 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if !allFinite(s.Bodies()) {
		t.Error("expected finite positions")
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	t.Parallel()

	a, b := New(WithSeed(7)), New(WithSeed(7))
	resetFrom(a, sampleGraph())
	resetFrom(b, sampleGraph())
	a.Run(context.Background(), 0)
	b.Run(context.Background(), 0)

	ba, bb := a.Bodies(), b.Bodies()
	for i := range ba {
		if ba[i] != bb[i] {
			t.Errorf("expected identical layouts, body %d differs: %+v vs %+v", i, ba[i], bb[i])
		}
	}
}

func TestSimulator_EdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty simulator steps", func(t *testing.T) {
		t.Parallel()

		s := New()
		if !s.Step() {
			t.Error("expected step to run")
		}
		if s.Len() != 0 {
			t.Errorf("expected no bodies, got %d", s.Len())
		}
	})

	t.Run("self loop exerts no force", func(t *testing.T) {
		t.Parallel()

		m := graph.New()
		m.Merge(model.CrawlEvent{ParentURL: "a", ChildURLs: []string{"a"}})
		s := New()
		resetFrom(s, m)
		if got := s.Stats().Links; got != 0 {
			t.Errorf("expected self loop to be skipped, got %d links", got)
		}
	})

	t.Run("place unknown or non finite", func(t *testing.T) {
		t.Parallel()

		s := New()
		resetFrom(s, sampleGraph())
		if s.Place("missing", 1, 1) {
			t.Error("expected unknown id to be rejected")
		}
		if s.Place(root, math.NaN(), 1) {
			t.Error("expected NaN to be rejected")
		}
		if !s.Place(root, 10, 20) {
			t.Fatal("expected known id to be placed")
		}
		b, _ := s.Body(root)
		if b.X != 10 || b.Y != 20 || b.VX != 0 || b.VY != 0 {
			t.Errorf("unexpected body after place: %+v", b)
		}
	})

	t.Run("invalid params fall back to defaults", func(t *testing.T) {
		t.Parallel()

		s := New(WithParams(Params{}))
		p := s.Params()
		if p.AlphaDecay != DefaultAlphaDecay || p.MaxSteps != 1000 || p.Width != 500 {
			t.Errorf("expected defaults, got %+v", p)
		}
	})

	t.Run("spiral seeds distinct positions", func(t *testing.T) {
		t.Parallel()

		s := New()
		resetFrom(s, sampleGraph())
		bodies := s.Bodies()
		for i := range bodies {
			for j := i + 1; j < len(bodies); j++ {
				if bodies[i].X == bodies[j].X && bodies[i].Y == bodies[j].Y {
					t.Errorf("bodies %d and %d start on the same point", i, j)
				}
			}
		}
	})
}

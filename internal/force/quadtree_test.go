package force

import (
	"math"
	"sort"
	"testing"
)

func TestQuadtree(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		tree := newQuadtree(nil)
		if tree.size() != 0 {
			t.Errorf("expected empty tree, got %d", tree.size())
		}
		tree.within(0, 0, 10, func(int) { t.Error("expected no points") })
	})

	t.Run("centroid and count", func(t *testing.T) {
		t.Parallel()

		pts := []point{{0, 0}, {10, 0}, {0, 10}, {10, 10}, {5, 5}}
		tree := newQuadtree(pts)
		if tree.size() != len(pts) {
			t.Errorf("expected %d points, got %d", len(pts), tree.size())
		}
		if math.Abs(tree.root.cx-5) > 1e-9 || math.Abs(tree.root.cy-5) > 1e-9 {
			t.Errorf("expected centroid (5,5), got (%v,%v)", tree.root.cx, tree.root.cy)
		}
	})

	t.Run("coincident points share a leaf", func(t *testing.T) {
		t.Parallel()

		pts := []point{{3, 3}, {3, 3}, {3, 3}}
		tree := newQuadtree(pts)
		if !tree.root.leaf || len(tree.root.points) != 3 {
			t.Errorf("expected single leaf with 3 points, got leaf=%v points=%v", tree.root.leaf, tree.root.points)
		}
	})

	t.Run("non finite points are skipped", func(t *testing.T) {
		t.Parallel()

		pts := []point{{1, 1}, {math.NaN(), 2}, {2, math.Inf(1)}, {4, 4}}
		tree := newQuadtree(pts)
		if tree.size() != 2 {
			t.Errorf("expected 2 indexed points, got %d", tree.size())
		}
	})

	t.Run("range query matches brute force", func(t *testing.T) {
		t.Parallel()

		pts := make([]point, 0, 200)
		for i := range 200 {
			a := float64(i) * 0.7
			pts = append(pts, point{x: 250 + float64(i)*math.Cos(a), y: 250 + float64(i)*math.Sin(a)})
		}
		tree := newQuadtree(pts)

		const cx, cy, r = 260.0, 240.0, 40.0
		var got []int
		tree.within(cx, cy, r, func(i int) {
			p := pts[i]
			if math.Abs(p.x-cx) <= r && math.Abs(p.y-cy) <= r {
				got = append(got, i)
			}
		})
		var want []int
		for i, p := range pts {
			if math.Abs(p.x-cx) <= r && math.Abs(p.y-cy) <= r {
				want = append(want, i)
			}
		}
		sort.Ints(got)
		if len(got) != len(want) {
			t.Fatalf("expected %d points in range, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("expected point %d, got %d", want[i], got[i])
			}
		}
	})
}

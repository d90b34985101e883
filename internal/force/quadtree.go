package force

import "math"

// maxQuadDepth stops subdivision. Bodies that are still together at this
// depth share a leaf.
const maxQuadDepth = 32

type point struct {
	x, y float64
}

// quadNode is a square cell of a point quadtree. Leaves hold the indices of
// their points; internal nodes hold up to four lazily created children.
type quadNode struct {
	x0, y0, x1, y1 float64

	children [4]*quadNode
	points   []int
	leaf     bool

	// count and (cx, cy) are the number of points below this cell and
	// their centroid, filled by accumulate.
	count  int
	cx, cy float64
}

// quadtree indexes a fixed set of points.
type quadtree struct {
	root *quadNode
	pts  []point
}

// newQuadtree builds a tree over pts. The root is the smallest square
// containing every finite point.
func newQuadtree(pts []point) *quadtree {
	t := &quadtree{pts: pts}
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		if !finite(p.x) || !finite(p.y) {
			continue
		}
		x0, y0 = math.Min(x0, p.x), math.Min(y0, p.y)
		x1, y1 = math.Max(x1, p.x), math.Max(y1, p.y)
	}
	if x0 > x1 {
		return t
	}
	size := math.Max(x1-x0, y1-y0)
	if size == 0 {
		size = 1
	}
	t.root = &quadNode{x0: x0, y0: y0, x1: x0 + size, y1: y0 + size, leaf: true}
	for i, p := range pts {
		if finite(p.x) && finite(p.y) {
			t.insert(t.root, i, 0)
		}
	}
	t.accumulate(t.root)
	return t
}

func (t *quadtree) insert(q *quadNode, i, depth int) {
	for {
		if q.leaf {
			if len(q.points) == 0 || depth >= maxQuadDepth || t.pts[q.points[0]] == t.pts[i] {
				q.points = append(q.points, i)
				return
			}
			existing := q.points
			q.points = nil
			q.leaf = false
			for _, e := range existing {
				t.insert(q.child(t.pts[e]), e, depth+1)
			}
		}
		q = q.child(t.pts[i])
		depth++
	}
}

// child returns the quadrant of q containing p, creating it when needed.
func (q *quadNode) child(p point) *quadNode {
	xm, ym := (q.x0+q.x1)/2, (q.y0+q.y1)/2
	k := 0
	if p.x >= xm {
		k |= 1
	}
	if p.y >= ym {
		k |= 2
	}
	if q.children[k] == nil {
		c := &quadNode{x0: q.x0, y0: q.y0, x1: xm, y1: ym, leaf: true}
		if k&1 != 0 {
			c.x0, c.x1 = xm, q.x1
		}
		if k&2 != 0 {
			c.y0, c.y1 = ym, q.y1
		}
		q.children[k] = c
	}
	return q.children[k]
}

func (t *quadtree) accumulate(q *quadNode) {
	if q.leaf {
		q.count = len(q.points)
		for _, i := range q.points {
			q.cx += t.pts[i].x
			q.cy += t.pts[i].y
		}
	} else {
		for _, c := range q.children {
			if c == nil {
				continue
			}
			t.accumulate(c)
			q.count += c.count
			q.cx += c.cx * float64(c.count)
			q.cy += c.cy * float64(c.count)
		}
	}
	if q.count > 0 {
		q.cx /= float64(q.count)
		q.cy /= float64(q.count)
	}
}

// visit walks the tree depth first. Children are skipped when fn returns
// true.
func (t *quadtree) visit(fn func(q *quadNode) bool) {
	if t.root == nil {
		return
	}
	stack := []*quadNode{t.root}
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if q.count == 0 || fn(q) || q.leaf {
			continue
		}
		for k := 3; k >= 0; k-- {
			if c := q.children[k]; c != nil {
				stack = append(stack, c)
			}
		}
	}
}

// within calls fn for every point inside the square of half-size r
// centred on (x, y).
func (t *quadtree) within(x, y, r float64, fn func(i int)) {
	x0, y0, x1, y1 := x-r, y-r, x+r, y+r
	t.visit(func(q *quadNode) bool {
		if q.x0 > x1 || q.x1 < x0 || q.y0 > y1 || q.y1 < y0 {
			return true
		}
		for _, i := range q.points {
			fn(i)
		}
		return false
	})
}

// size returns the number of indexed points.
func (t *quadtree) size() int {
	if t.root == nil {
		return 0
	}
	return t.root.count
}

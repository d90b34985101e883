package force

import "math"

// applyCharge adds the many-body repulsion to every velocity.
func (s *Simulator) applyCharge() {
	strength := s.params.ChargeStrength
	if strength == 0 || len(s.bodies) < 2 {
		return
	}
	if !s.barnesHut() {
		for i := range s.bodies {
			for j := range s.bodies {
				if i != j {
					s.repel(i, s.bodies[j].X, s.bodies[j].Y, strength)
				}
			}
		}
		return
	}

	pts := make([]point, len(s.bodies))
	for i, b := range s.bodies {
		pts[i] = point{b.X, b.Y}
	}
	tree := newQuadtree(pts)
	theta2 := s.params.Theta * s.params.Theta
	for i := range s.bodies {
		tree.visit(func(q *quadNode) bool {
			b := &s.bodies[i]
			if !q.leaf {
				dx, dy := q.cx-b.X, q.cy-b.Y
				w := q.x1 - q.x0
				if w*w/theta2 < dx*dx+dy*dy {
					s.repel(i, q.cx, q.cy, strength*float64(q.count))
					return true
				}
				return false
			}
			for _, j := range q.points {
				if j != i {
					s.repel(i, pts[j].x, pts[j].y, strength)
				}
			}
			return true
		})
	}
}

// repel applies a charge of the given weight located at (x, y) to body i.
func (s *Simulator) repel(i int, x, y, weight float64) {
	b := &s.bodies[i]
	dx, dy := x-b.X, y-b.Y
	l := dx*dx + dy*dy
	if dx == 0 {
		dx = s.jiggle()
		l += dx * dx
	}
	if dy == 0 {
		dy = s.jiggle()
		l += dy * dy
	}
	dmin2 := s.params.DistanceMin * s.params.DistanceMin
	if l < dmin2 {
		l = math.Sqrt(dmin2 * l)
	}
	w := weight * s.alpha / l
	b.VX += dx * w
	b.VY += dy * w
}

// applyCenter translates every body so that the centroid sits in the
// middle of the canvas.
func (s *Simulator) applyCenter() {
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.X
		sy += b.Y
	}
	n := float64(len(s.bodies))
	sx = sx/n - s.params.Width/2
	sy = sy/n - s.params.Height/2
	for i := range s.bodies {
		s.bodies[i].X -= sx
		s.bodies[i].Y -= sy
	}
}

// applyLinks pulls the endpoints of each link toward the rest distance.
// The lower-degree endpoint moves more.
func (s *Simulator) applyLinks() {
	for _, l := range s.links {
		src, dst := &s.bodies[l.source], &s.bodies[l.target]
		x := dst.X + dst.VX - src.X - src.VX
		y := dst.Y + dst.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		f := (d - s.params.LinkDistance) / d * s.alpha * l.strength
		x *= f
		y *= f
		dst.VX -= x * l.bias
		dst.VY -= y * l.bias
		src.VX += x * (1 - l.bias)
		src.VY += y * (1 - l.bias)
	}
}

// applyCollide separates bodies whose predicted positions are closer than
// two radii.
func (s *Simulator) applyCollide() {
	r := s.params.NodeRadius
	if r == 0 || s.params.CollideStrength == 0 || len(s.bodies) < 2 {
		return
	}
	contact := 2 * r

	pts := make([]point, len(s.bodies))
	for i, b := range s.bodies {
		pts[i] = point{b.X + b.VX, b.Y + b.VY}
	}

	if !s.barnesHut() {
		for i := range s.bodies {
			for j := i + 1; j < len(s.bodies); j++ {
				s.separate(i, j, pts[i], contact)
			}
		}
		return
	}

	tree := newQuadtree(pts)
	for i := range s.bodies {
		tree.within(pts[i].x, pts[i].y, contact, func(j int) {
			if j > i {
				s.separate(i, j, pts[i], contact)
			}
		})
	}
}

// separate resolves the overlap between body i, predicted at p, and body j.
// Both radii are equal so each body takes half the correction.
func (s *Simulator) separate(i, j int, p point, contact float64) {
	a, b := &s.bodies[i], &s.bodies[j]
	x := p.x - b.X - b.VX
	y := p.y - b.Y - b.VY
	l := x*x + y*y
	if l >= contact*contact {
		return
	}
	if x == 0 {
		x = s.jiggle()
		l += x * x
	}
	if y == 0 {
		y = s.jiggle()
		l += y * y
	}
	d := math.Sqrt(l)
	f := (contact - d) / d * s.params.CollideStrength
	x *= f
	y *= f
	a.VX += x * 0.5
	a.VY += y * 0.5
	b.VX -= x * 0.5
	b.VY -= y * 0.5
}

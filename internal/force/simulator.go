package force

import (
	"context"
	"log/slog"
	"math"

	"github.com/nao1215/crawlgraph/internal/graph"
)

// Body is the simulated state of one node.
type Body struct {
	ID string
	X  float64
	Y  float64
	VX float64
	VY float64
}

// Stats summarises a simulator for logs and reports.
type Stats struct {
	Bodies    int
	Links     int
	Steps     int
	Alpha     float64
	Converged bool
	BarnesHut bool
	Resets    int
	Restored  int
}

type link struct {
	source   int
	target   int
	strength float64
	bias     float64
}

// Simulator runs a force-directed layout over the nodes and edges of a
// graph snapshot. It is not safe for concurrent use.
type Simulator struct {
	params Params
	logger *slog.Logger

	bodies []Body
	index  map[string]int
	links  []link

	// prev holds positions from before the current step so that a body
	// that diverges can be put back.
	prev []Body

	alpha     float64
	steps     int
	converged bool

	rng      uint32
	resets   int
	restored int
}

// New creates an empty simulator with alpha at 1.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		params: DefaultParams(),
		logger: slog.Default(),
		index:  make(map[string]int),
		alpha:  1,
		rng:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.params = s.params.normalize()
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Params returns the constants in effect.
func (s *Simulator) Params() Params {
	return s.params
}

// Reset rebuilds the simulation for a new snapshot of the graph.
// Bodies whose id was already known keep their position and velocity. New
// bodies are placed on a phyllotaxis spiral around the center according to
// their node index, alpha is reheated to 1 and the step counter restarts.
//
// A snapshot that only adds unlinked bodies to a known layout does not
// reheat: the new bodies are parked on a ring just outside the existing
// bodies and alpha, steps and convergence carry over, so a settled layout
// stays where it is.
func (s *Simulator) Reset(nodes []graph.Node, edges []graph.Edge) {
	prevLinks := len(s.links)
	bodies := make([]Body, len(nodes))
	index := make(map[string]int, len(nodes))
	var seeded []int
	for i, n := range nodes {
		if j, ok := s.index[n.ID]; ok {
			bodies[i] = s.bodies[j]
		} else {
			x, y := s.spiral(n.Index)
			bodies[i] = Body{ID: n.ID, X: x, Y: y}
			seeded = append(seeded, i)
		}
		index[n.ID] = i
	}
	survivors := len(bodies) - len(seeded)
	keepsAll := survivors > 0 && survivors == len(s.bodies)

	s.bodies = bodies
	s.index = index
	s.prev = make([]Body, len(bodies))
	s.links = s.buildLinks(edges)
	s.resets++

	if keepsAll && len(s.links) == prevLinks && !s.touchesAny(seeded) {
		s.park(seeded)
		s.logger.Debug("simulation extended without reheat",
			slog.Int("bodies", len(bodies)),
			slog.Int("parked", len(seeded)))
		return
	}

	s.alpha = 1
	s.steps = 0
	s.converged = false

	s.logger.Debug("simulation reset",
		slog.Int("bodies", len(bodies)),
		slog.Int("seeded", len(seeded)),
		slog.Int("links", len(s.links)))
}

// touchesAny reports whether a link has an endpoint in idx.
func (s *Simulator) touchesAny(idx []int) bool {
	if len(idx) == 0 {
		return false
	}
	set := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		set[i] = struct{}{}
	}
	for _, l := range s.links {
		if _, ok := set[l.source]; ok {
			return true
		}
		if _, ok := set[l.target]; ok {
			return true
		}
	}
	return false
}

// park places the bodies at idx on a ring around the centroid of the other
// bodies, one link distance beyond the farthest of them. Angles follow the
// golden angle by body index so parked bodies never coincide.
func (s *Simulator) park(idx []int) {
	parked := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		parked[i] = struct{}{}
	}

	var cx, cy float64
	n := 0
	for i, b := range s.bodies {
		if _, ok := parked[i]; ok {
			continue
		}
		cx += b.X
		cy += b.Y
		n++
	}
	cx /= float64(n)
	cy /= float64(n)

	var rmax float64
	for i, b := range s.bodies {
		if _, ok := parked[i]; ok {
			continue
		}
		rmax = math.Max(rmax, math.Hypot(b.X-cx, b.Y-cy))
	}
	r := rmax + math.Max(math.Max(s.params.LinkDistance, 4*s.params.NodeRadius), 1)

	angle := math.Pi * (3 - math.Sqrt(5))
	for _, i := range idx {
		a := float64(i) * angle
		s.bodies[i].X = cx + r*math.Cos(a)
		s.bodies[i].Y = cy + r*math.Sin(a)
		s.bodies[i].VX, s.bodies[i].VY = 0, 0
	}
}

// spiral returns the initial position of the i-th node.
func (s *Simulator) spiral(i int) (float64, float64) {
	const initialRadius = 10
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	r := initialRadius * math.Sqrt(0.5+float64(i))
	a := float64(i) * initialAngle
	return s.params.Width/2 + r*math.Cos(a), s.params.Height/2 + r*math.Sin(a)
}

// buildLinks resolves edges to body indices and precomputes the
// degree-based strength and bias of each link. Self loops exert no force
// and are left out.
func (s *Simulator) buildLinks(edges []graph.Edge) []link {
	count := make([]int, len(s.bodies))
	resolved := make([]link, 0, len(edges))
	for _, e := range edges {
		src, ok := s.index[e.Source]
		if !ok {
			continue
		}
		dst, ok := s.index[e.Target]
		if !ok || src == dst {
			continue
		}
		count[src]++
		count[dst]++
		resolved = append(resolved, link{source: src, target: dst})
	}

	for i := range resolved {
		l := &resolved[i]
		cs, ct := float64(count[l.source]), float64(count[l.target])
		if s.params.LinkStrength > 0 {
			l.strength = s.params.LinkStrength
		} else {
			l.strength = 1 / math.Min(cs, ct)
		}
		l.bias = cs / (cs + ct)
	}
	return resolved
}

// Step advances the simulation by one tick and reports whether it did.
// A converged simulator does not move.
func (s *Simulator) Step() bool {
	if s.converged {
		return false
	}

	s.alpha += (s.params.AlphaTarget - s.alpha) * s.params.AlphaDecay
	copy(s.prev, s.bodies)

	if len(s.bodies) > 0 {
		s.applyCharge()
		s.applyCenter()
		s.applyLinks()
		s.applyCollide()
		s.integrate()
	}

	s.steps++
	if s.alpha < s.params.AlphaMin || s.steps >= s.params.MaxSteps {
		s.converged = true
		s.logger.Debug("simulation converged",
			slog.Int("steps", s.steps),
			slog.Float64("alpha", s.alpha))
	}
	return true
}

// Run steps until the simulation converges, maxSteps steps have run or ctx
// is done, and returns the number of steps taken. maxSteps <= 0 means no
// limit beyond convergence.
func (s *Simulator) Run(ctx context.Context, maxSteps int) int {
	n := 0
	for maxSteps <= 0 || n < maxSteps {
		if ctx.Err() != nil {
			break
		}
		if !s.Step() {
			break
		}
		n++
	}
	return n
}

// integrate applies velocity decay and the speed clamp, moves every body,
// and restores any body whose state became non-finite.
func (s *Simulator) integrate() {
	keep := 1 - s.params.VelocityDecay
	maxSpeed := s.params.MaxSpeed
	for i := range s.bodies {
		b := &s.bodies[i]
		b.VX *= keep
		b.VY *= keep
		if speed := math.Hypot(b.VX, b.VY); speed > maxSpeed {
			scale := maxSpeed / speed
			b.VX *= scale
			b.VY *= scale
		}
		b.X += b.VX
		b.Y += b.VY

		if !finite(b.X) || !finite(b.Y) || !finite(b.VX) || !finite(b.VY) {
			p := s.prev[i]
			b.X, b.Y, b.VX, b.VY = p.X, p.Y, 0, 0
			if !finite(b.X) || !finite(b.Y) {
				b.X, b.Y = s.spiral(i)
			}
			s.restored++
			s.logger.Warn("restored diverging body", slog.String("id", b.ID))
		}
	}
}

// jiggle returns a tiny non-zero offset from the seeded generator.
func (s *Simulator) jiggle() float64 {
	const (
		a = 1664525
		c = 1013904223
	)
	s.rng = a*s.rng + c // modulo 2^32 by overflow
	v := (float64(s.rng)/4294967296 - 0.5) * 1e-6
	if v == 0 {
		return 0.5e-6
	}
	return v
}

// Bodies returns a copy of the bodies in node insertion order.
func (s *Simulator) Bodies() []Body {
	out := make([]Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}

// Body returns the body for id.
func (s *Simulator) Body(id string) (Body, bool) {
	i, ok := s.index[id]
	if !ok {
		return Body{}, false
	}
	return s.bodies[i], true
}

// Place moves the body for id to (x, y) and stops it. It reports whether
// the id is known. Non-finite coordinates are ignored.
func (s *Simulator) Place(id string, x, y float64) bool {
	i, ok := s.index[id]
	if !ok || !finite(x) || !finite(y) {
		return false
	}
	b := &s.bodies[i]
	b.X, b.Y, b.VX, b.VY = x, y, 0, 0
	return true
}

// Alpha returns the current temperature.
func (s *Simulator) Alpha() float64 {
	return s.alpha
}

// Steps returns the number of steps since the last reset.
func (s *Simulator) Steps() int {
	return s.steps
}

// Converged reports whether the simulation has stopped.
func (s *Simulator) Converged() bool {
	return s.converged
}

// Len returns the number of bodies.
func (s *Simulator) Len() int {
	return len(s.bodies)
}

// Stats returns a summary of the simulator.
func (s *Simulator) Stats() Stats {
	return Stats{
		Bodies:    len(s.bodies),
		Links:     len(s.links),
		Steps:     s.steps,
		Alpha:     s.alpha,
		Converged: s.converged,
		BarnesHut: s.barnesHut(),
		Resets:    s.resets,
		Restored:  s.restored,
	}
}

func (s *Simulator) barnesHut() bool {
	return len(s.bodies) >= s.params.BarnesHutThreshold
}

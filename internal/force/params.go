package force

import (
	"log/slog"
	"math"
)

// Params holds the physical constants of a simulation.
type Params struct {
	// Width and Height are the canvas size. The center force pulls the
	// centroid to (Width/2, Height/2).
	Width  float64
	Height float64

	// AlphaDecay is the fraction of the remaining distance to AlphaTarget
	// removed from alpha on each step.
	AlphaDecay float64
	// AlphaMin is the alpha below which the simulation is converged.
	AlphaMin float64
	// AlphaTarget is the value alpha decays toward. Zero lets the
	// simulation cool down completely.
	AlphaTarget float64

	// VelocityDecay is the fraction of velocity lost per step.
	VelocityDecay float64
	// MaxSpeed clamps the length of a velocity vector.
	MaxSpeed float64

	// ChargeStrength is negative for repulsion.
	ChargeStrength float64
	// DistanceMin bounds the charge force for very close bodies.
	DistanceMin float64
	// Theta is the Barnes-Hut accuracy parameter.
	Theta float64
	// BarnesHutThreshold is the body count at which the charge and collide
	// forces switch from all pairs to the quadtree.
	BarnesHutThreshold int

	// LinkDistance is the rest length of an edge.
	LinkDistance float64
	// LinkStrength overrides the degree-based link strength when positive.
	LinkStrength float64

	// NodeRadius is the collision radius of a body.
	NodeRadius float64
	// CollideStrength scales how much of an overlap is resolved per step.
	CollideStrength float64

	// MaxSteps bounds the number of steps after a reset.
	MaxSteps int
}

// DefaultAlphaDecay converges a fresh simulation in 300 steps:
// (1-0.0228)^300 < 0.001 <= (1-0.0228)^299.
const DefaultAlphaDecay = 0.0228

// DefaultParams returns the d3-force defaults on a 500x500 canvas.
func DefaultParams() Params {
	return Params{
		Width:              500,
		Height:             500,
		AlphaDecay:         DefaultAlphaDecay,
		AlphaMin:           0.001,
		AlphaTarget:        0,
		VelocityDecay:      0.4,
		MaxSpeed:           100,
		ChargeStrength:     -30,
		DistanceMin:        1,
		Theta:              0.9,
		BarnesHutThreshold: 100,
		LinkDistance:       30,
		LinkStrength:       0,
		NodeRadius:         5,
		CollideStrength:    1,
		MaxSteps:           1000,
	}
}

// normalize replaces values that would stall or destabilise the
// simulation with their defaults.
func (p Params) normalize() Params {
	def := DefaultParams()
	if p.Width <= 0 || !finite(p.Width) {
		p.Width = def.Width
	}
	if p.Height <= 0 || !finite(p.Height) {
		p.Height = def.Height
	}
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = def.AlphaDecay
	}
	if p.AlphaMin <= 0 || p.AlphaMin >= 1 {
		p.AlphaMin = def.AlphaMin
	}
	if p.AlphaTarget < 0 || p.AlphaTarget >= 1 {
		p.AlphaTarget = def.AlphaTarget
	}
	if p.VelocityDecay < 0 || p.VelocityDecay > 1 {
		p.VelocityDecay = def.VelocityDecay
	}
	if p.MaxSpeed <= 0 || !finite(p.MaxSpeed) {
		p.MaxSpeed = def.MaxSpeed
	}
	if p.DistanceMin <= 0 {
		p.DistanceMin = def.DistanceMin
	}
	if p.Theta <= 0 {
		p.Theta = def.Theta
	}
	if p.BarnesHutThreshold <= 0 {
		p.BarnesHutThreshold = def.BarnesHutThreshold
	}
	if p.LinkDistance < 0 {
		p.LinkDistance = def.LinkDistance
	}
	if p.NodeRadius < 0 {
		p.NodeRadius = def.NodeRadius
	}
	if p.CollideStrength < 0 || p.CollideStrength > 1 {
		p.CollideStrength = def.CollideStrength
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = def.MaxSteps
	}
	return p
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithParams replaces the physical constants. Invalid values fall back to
// DefaultParams.
func WithParams(p Params) Option {
	return func(s *Simulator) {
		s.params = p
	}
}

// WithSeed seeds the jiggle generator.
func WithSeed(seed uint32) Option {
	return func(s *Simulator) {
		s.rng = seed
	}
}

// WithLogger sets the logger used for reset and divergence messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

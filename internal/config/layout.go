package config

import "github.com/nao1215/crawlgraph/internal/force"

// Layout holds the force layout constants that can be set from the
// config file. A zero field means "keep the current value".
type Layout struct {
	Width              float64 `yaml:"width,omitempty"`
	Height             float64 `yaml:"height,omitempty"`
	AlphaDecay         float64 `yaml:"alphaDecay,omitempty"`
	AlphaMin           float64 `yaml:"alphaMin,omitempty"`
	VelocityDecay      float64 `yaml:"velocityDecay,omitempty"`
	ChargeStrength     float64 `yaml:"chargeStrength,omitempty"`
	LinkDistance       float64 `yaml:"linkDistance,omitempty"`
	NodeRadius         float64 `yaml:"nodeRadius,omitempty"`
	Theta              float64 `yaml:"theta,omitempty"`
	MaxSpeed           float64 `yaml:"maxSpeed,omitempty"`
	BarnesHutThreshold int     `yaml:"barnesHutThreshold,omitempty"`
	MaxSteps           int     `yaml:"maxSteps,omitempty"`
	Seed               uint32  `yaml:"seed,omitempty"`
}

// DefaultSeed seeds the jiggle generator when no seed is configured.
const DefaultSeed = 1

// DefaultLayout returns the simulator defaults as layout constants.
func DefaultLayout() Layout {
	p := force.DefaultParams()
	return Layout{
		Width:              p.Width,
		Height:             p.Height,
		AlphaDecay:         p.AlphaDecay,
		AlphaMin:           p.AlphaMin,
		VelocityDecay:      p.VelocityDecay,
		ChargeStrength:     p.ChargeStrength,
		LinkDistance:       p.LinkDistance,
		NodeRadius:         p.NodeRadius,
		Theta:              p.Theta,
		MaxSpeed:           p.MaxSpeed,
		BarnesHutThreshold: p.BarnesHutThreshold,
		MaxSteps:           p.MaxSteps,
		Seed:               DefaultSeed,
	}
}

// Merge returns l with every non-zero field of o applied.
func (l Layout) Merge(o Layout) Layout {
	setF := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setF(&l.Width, o.Width)
	setF(&l.Height, o.Height)
	setF(&l.AlphaDecay, o.AlphaDecay)
	setF(&l.AlphaMin, o.AlphaMin)
	setF(&l.VelocityDecay, o.VelocityDecay)
	setF(&l.ChargeStrength, o.ChargeStrength)
	setF(&l.LinkDistance, o.LinkDistance)
	setF(&l.NodeRadius, o.NodeRadius)
	setF(&l.Theta, o.Theta)
	setF(&l.MaxSpeed, o.MaxSpeed)
	if o.BarnesHutThreshold != 0 {
		l.BarnesHutThreshold = o.BarnesHutThreshold
	}
	if o.MaxSteps != 0 {
		l.MaxSteps = o.MaxSteps
	}
	if o.Seed != 0 {
		l.Seed = o.Seed
	}
	return l
}

// Validate checks the layout constants.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return ErrInvalidCanvas
	}
	if l.AlphaDecay <= 0 || l.AlphaDecay >= 1 {
		return ErrInvalidAlphaDecay
	}
	if l.AlphaMin <= 0 || l.AlphaMin >= 1 {
		return ErrInvalidAlphaMin
	}
	if l.VelocityDecay < 0 || l.VelocityDecay > 1 {
		return ErrInvalidVelocityDecay
	}
	if l.MaxSteps <= 0 {
		return ErrInvalidMaxSteps
	}
	if l.NodeRadius < 0 || l.LinkDistance < 0 || l.Theta < 0 || l.MaxSpeed < 0 || l.BarnesHutThreshold < 0 {
		return ErrInvalidLayout
	}
	return nil
}

// validateOverrides checks a layout block from the config file by applying
// it to the defaults.
func (l Layout) validateOverrides() error {
	return DefaultLayout().Merge(l).Validate()
}

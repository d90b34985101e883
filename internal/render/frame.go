package render

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Circle is the primitive drawn for a node.
type Circle struct {
	// ID is the page URL.
	ID string `json:"id"`
	// Key is a markup-safe identifier derived from ID.
	Key  string  `json:"key"`
	CX   float64 `json:"x"`
	CY   float64 `json:"y"`
	R    float64 `json:"r"`
	Fill string  `json:"fill"`
}

// Line is the primitive drawn for an edge.
type Line struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	X1           float64 `json:"x1"`
	Y1           float64 `json:"y1"`
	X2           float64 `json:"x2"`
	Y2           float64 `json:"y2"`
	Stroke       string  `json:"stroke"`
	Width        float64 `json:"width"`
	Multiplicity int     `json:"count"`
}

// Frame is one painted state of the layout.
type Frame struct {
	Seq     uint64   `json:"seq"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Circles []Circle `json:"nodes"`
	Lines   []Line   `json:"links"`
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Circles = append([]Circle(nil), f.Circles...)
	c.Lines = append([]Line(nil), f.Lines...)
	return &c
}

// ElementID returns a stable identifier for a URL that is safe to use as
// an SVG id or a mermaid node name.
func ElementID(url string) string {
	sum := sha3.Sum256([]byte(url))
	return "n" + hex.EncodeToString(sum[:6])
}

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo/float"
)

// EncodeJSON writes f as a single line of JSON in the d3 nodes/links shape.
func EncodeJSON(w io.Writer, f *Frame) error {
	return json.NewEncoder(w).Encode(f)
}

// EncodeSVG writes f as a standalone SVG document. Links are drawn below
// nodes; each node carries its URL as a tooltip.
func EncodeSVG(w io.Writer, f *Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid canvas %vx%v", f.Width, f.Height)
	}
	canvas := svg.New(w)
	canvas.Start(f.Width, f.Height)
	canvas.Title("crawlgraph")

	canvas.Gid("links")
	for _, l := range f.Lines {
		if !finiteAll(l.X1, l.Y1, l.X2, l.Y2) {
			continue
		}
		canvas.Line(l.X1, l.Y1, l.X2, l.Y2,
			fmt.Sprintf(`stroke="%s"`, l.Stroke),
			fmt.Sprintf(`stroke-width="%g"`, l.Width))
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, c := range f.Circles {
		if !finiteAll(c.CX, c.CY) {
			continue
		}
		canvas.Gid(c.Key)
		canvas.Title(c.ID)
		canvas.Circle(c.CX, c.CY, c.R, fmt.Sprintf(`fill="%s"`, c.Fill))
		canvas.Gend()
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

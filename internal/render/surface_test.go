package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleFrame() *Frame {
	return &Frame{
		Seq:    3,
		Width:  500,
		Height: 500,
		Circles: []Circle{
			{ID: "https://example.com/?a=1&b=<2>", Key: ElementID("https://example.com/?a=1&b=<2>"), CX: 100, CY: 120, R: 5, Fill: "red"},
			{ID: "https://example.com/x", Key: ElementID("https://example.com/x"), CX: 140, CY: 160, R: 5, Fill: "red"},
		},
		Lines: []Line{
			{Source: "https://example.com/?a=1&b=<2>", Target: "https://example.com/x", X1: 100, Y1: 120, X2: 140, Y2: 160, Stroke: "black", Width: 2, Multiplicity: 1},
		},
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(2)
	for range 3 {
		if err := rec.Draw(sampleFrame()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if rec.Len() != 2 {
		t.Errorf("expected 2 frames kept, got %d", rec.Len())
	}

	f := sampleFrame()
	_ = rec.Draw(f)
	f.Circles[0].CX = -1
	last, _ := rec.Last()
	if last.Circles[0].CX != 100 {
		t.Error("expected recorder to keep a copy")
	}
}

func TestEncodeSVG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeSVG(&buf, sampleFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<svg`,
		`width="500.00"`,
		`<line x1="100.00" y1="120.00" x2="140.00" y2="160.00" stroke="black" stroke-width="2"`,
		`<circle cx="140.00" cy="160.00" r="5.00" fill="red"`,
		`<title>https://example.com/?a=1&amp;b=&lt;2&gt;</title>`,
		`id="` + ElementID("https://example.com/x") + `"`,
		`</svg>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Index(out, "<line") > strings.Index(out, "<circle") {
		t.Error("expected links drawn below nodes")
	}

	t.Run("rejects empty canvas", func(t *testing.T) {
		t.Parallel()

		if err := EncodeSVG(&bytes.Buffer{}, &Frame{}); err == nil {
			t.Error("expected error for empty canvas")
		}
	})
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodeJSON(&buf, sampleFrame()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Nodes []struct {
			ID string  `json:"id"`
			X  float64 `json:"x"`
		} `json:"nodes"`
		Links []struct {
			Source string `json:"source"`
			Target string `json:"target"`
			Count  int    `json:"count"`
		} `json:"links"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got.Nodes) != 2 || got.Nodes[1].X != 140 {
		t.Errorf("unexpected nodes: %+v", got.Nodes)
	}
	if len(got.Links) != 1 || got.Links[0].Target != "https://example.com/x" || got.Links[0].Count != 1 {
		t.Errorf("unexpected links: %+v", got.Links)
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Error("expected a single line")
	}
}

func TestFileSurface(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "graph.svg")
	s := NewFileSurface(path, EncodeSVG)

	for range 2 {
		if err := s.Draw(sampleFrame()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "<svg") != 1 {
		t.Error("expected file to be rewritten, not appended")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left, got %d entries", len(entries))
	}
}

func TestStreamSurface(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewStreamSurface(&buf, EncodeJSON)
	for range 3 {
		if err := s.Draw(sampleFrame()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/crawlgraph/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs a human-readable summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every node and link instead of only the busiest.
	verbose bool

	// topN bounds the node and link lists when not verbose.
	topN int

	colorize bool
	printer  *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every node and link.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithTopN sets how many nodes and links are listed when not verbose.
func WithTopN(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.topN = n
		}
	}
}

// WithColor forces coloured headings on or off. By default colour follows
// the terminal detection of fatih/color.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colorize = enabled
	}
}

// WithLanguage sets the locale used to format numbers.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		topN:       10,
		colorize:   !color.NoColor,
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SimpleWriter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if w.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (w *SimpleWriter) heading(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	sb.WriteString(w.paint(color.FgCyan, color.Bold).Sprint(title) + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n\n")
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.LayoutReport) (int, error) {
	var sb strings.Builder
	p := w.printer

	sb.WriteString("\n" + strings.Repeat("=", ruleWidth) + "\n")
	sb.WriteString(w.paint(color.FgHiGreen, color.Bold).Sprint("                        CRAWL GRAPH LAYOUT") + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	if report.CrawlID != "" {
		sb.WriteString(fmt.Sprintf("Crawl ID:   %s\n", report.CrawlID))
	}
	sb.WriteString(fmt.Sprintf("Generated:  %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Canvas:     %dx%d\n", report.Width, report.Height))
	sb.WriteString(p.Sprintf("Events:     %d\n", report.Events))
	sb.WriteString(p.Sprintf("Nodes:      %d\n", report.NodeCount()))
	sb.WriteString(p.Sprintf("Edges:      %d (%d distinct, %d repeated)\n", report.EdgeCount, len(report.Links), report.DuplicateEdges()))
	sb.WriteString(p.Sprintf("Steps:      %d (alpha %.4f)\n", report.Steps, report.Alpha))
	if report.Converged {
		sb.WriteString("Status:     " + w.paint(color.FgGreen).Sprint("converged") + "\n\n")
	} else {
		sb.WriteString("Status:     " + w.paint(color.FgYellow).Sprint("not converged") + "\n\n")
	}

	nodes := report.Nodes
	links := report.Links
	if !w.verbose {
		nodes = topNodes(nodes, w.topN)
		links = topLinks(links, w.topN)
	}

	w.heading(&sb, "NODES")
	if len(nodes) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, n := range nodes {
		sb.WriteString(p.Sprintf("  %8.2f %8.2f  deg %-4d %s\n", n.X, n.Y, n.Degree, n.URL))
	}
	if hidden := len(report.Nodes) - len(nodes); hidden > 0 {
		sb.WriteString(p.Sprintf("  ... and %d more (use --verbose to list all)\n", hidden))
	}
	sb.WriteString("\n")

	w.heading(&sb, "LINKS")
	if len(links) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, l := range links {
		sb.WriteString(p.Sprintf("  x%-3d %s -> %s\n", l.Count, l.Source, l.Target))
	}
	if hidden := len(report.Links) - len(links); hidden > 0 {
		sb.WriteString(p.Sprintf("  ... and %d more\n", hidden))
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteDiff implements Writer.
func (w *SimpleWriter) WriteDiff(diff *model.CrawlDiff) (int, error) {
	var sb strings.Builder
	p := w.printer
	added := w.paint(color.FgGreen)
	removed := w.paint(color.FgRed)

	sb.WriteString("\n" + strings.Repeat("=", ruleWidth) + "\n")
	sb.WriteString(w.paint(color.FgHiGreen, color.Bold).Sprint("                        CRAWL COMPARISON") + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")
	if diff.Base != nil && diff.Target != nil {
		sb.WriteString(fmt.Sprintf("Base:    %s  %s  %s\n", diff.Base.ID, diff.Base.StartedAt.Format("2006-01-02 15:04"), diff.Base.Seed))
		sb.WriteString(fmt.Sprintf("Target:  %s  %s  %s\n\n", diff.Target.ID, diff.Target.StartedAt.Format("2006-01-02 15:04"), diff.Target.Seed))
	}
	sb.WriteString(p.Sprintf("Pages:   +%d -%d (%d common)\n", len(diff.AddedPages), len(diff.RemovedPages), diff.CommonPages))
	sb.WriteString(p.Sprintf("Links:   +%d -%d (%d common)\n\n", len(diff.AddedLinks), len(diff.RemovedLinks), diff.CommonLinks))

	if !diff.Changed() {
		sb.WriteString("No structural changes.\n")
		return io.WriteString(w.output, sb.String())
	}

	if len(diff.AddedPages)+len(diff.RemovedPages) > 0 {
		w.heading(&sb, "PAGES")
		for _, page := range diff.AddedPages {
			sb.WriteString(added.Sprint("  + ") + page + "\n")
		}
		for _, page := range diff.RemovedPages {
			sb.WriteString(removed.Sprint("  - ") + page + "\n")
		}
		sb.WriteString("\n")
	}
	if len(diff.AddedLinks)+len(diff.RemovedLinks) > 0 {
		w.heading(&sb, "LINKS")
		for _, l := range diff.AddedLinks {
			sb.WriteString(added.Sprint("  + ") + l.Source + " -> " + l.Target + "\n")
		}
		for _, l := range diff.RemovedLinks {
			sb.WriteString(removed.Sprint("  - ") + l.Source + " -> " + l.Target + "\n")
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

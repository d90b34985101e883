package report

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/flowchart"

	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/render"
)

// DefaultFlowchartLimit bounds the nodes drawn in the mermaid flowchart.
const DefaultFlowchartLimit = 50

// MarkdownWriter outputs reports as GitHub-flavoured Markdown built with
// nao1215/markdown. Layout reports include a mermaid flowchart of the graph;
// node ids in the chart are the same element ids the SVG output uses.
type MarkdownWriter struct {
	baseWriter
	flowchartLimit int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithFlowchartLimit sets how many nodes the flowchart may hold.
// 0 disables the flowchart.
func WithFlowchartLimit(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if n >= 0 {
			w.flowchartLimit = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:     newBaseWriter(output),
		flowchartLimit: DefaultFlowchartLimit,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.LayoutReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Graph Layout")
	md.PlainText("")

	rows := [][]string{}
	if report.CrawlID != "" {
		rows = append(rows, []string{"Crawl ID", "`" + report.CrawlID + "`"})
	}
	rows = append(rows,
		[]string{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Canvas", strconv.Itoa(report.Width) + "x" + strconv.Itoa(report.Height)},
		[]string{"Events", strconv.Itoa(report.Events)},
		[]string{"Nodes", strconv.Itoa(report.NodeCount())},
		[]string{"Edges", strconv.Itoa(report.EdgeCount)},
		[]string{"Distinct links", strconv.Itoa(len(report.Links))},
		[]string{"Steps", strconv.Itoa(report.Steps)},
		[]string{"Alpha", strconv.FormatFloat(report.Alpha, 'f', 4, 64)},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if report.Converged {
		md.Tip("The layout converged.")
	} else {
		md.Warningf("The layout stopped after %d steps without converging.", report.Steps)
	}
	md.PlainText("")

	if w.flowchartLimit > 0 && len(report.Nodes) > 0 {
		w.writeFlowchart(md, report)
	}

	md.H2("Nodes")
	md.PlainText("")
	if len(report.Nodes) == 0 {
		md.PlainText("No nodes.")
	} else {
		nodeRows := make([][]string, 0, len(report.Nodes))
		for _, n := range report.Nodes {
			nodeRows = append(nodeRows, []string{
				cell(n.URL),
				strconv.FormatFloat(n.X, 'f', 2, 64),
				strconv.FormatFloat(n.Y, 'f', 2, 64),
				strconv.Itoa(n.Degree),
			})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "X", "Y", "Degree"}, Rows: nodeRows})
	}
	md.PlainText("")

	md.H2("Links")
	md.PlainText("")
	if len(report.Links) == 0 {
		md.PlainText("No links.")
	} else {
		md.Table(markdown.TableSet{Header: []string{"Source", "Target", "Count"}, Rows: linkRows(report.Links)})
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeFlowchart(md *markdown.Markdown, report *model.LayoutReport) {
	nodes := topNodes(report.Nodes, w.flowchartLimit)
	included := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		included[n.URL] = true
	}
	host := commonHost(report.Nodes)

	fc := flowchart.NewFlowchart(io.Discard, flowchart.WithOrientalLeftToRight())
	for _, n := range nodes {
		fc.NodeWithText(render.ElementID(n.URL), flowchartLabel(n.URL, host))
	}
	for _, l := range report.Links {
		if !included[l.Source] || !included[l.Target] {
			continue
		}
		from, to := render.ElementID(l.Source), render.ElementID(l.Target)
		if l.Count > 1 {
			fc.LinkWithArrowHeadAndText(from, to, "x"+strconv.Itoa(l.Count))
		} else {
			fc.LinkWithArrowHead(from, to)
		}
	}

	md.H2("Graph")
	md.PlainText("")
	if hidden := len(report.Nodes) - len(nodes); hidden > 0 {
		md.Notef("Showing the %d most connected of %d nodes.", len(nodes), len(report.Nodes))
		md.PlainText("")
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, fc.String())
	md.PlainText("")
}

// WriteDiff implements Writer.
func (w *MarkdownWriter) WriteDiff(diff *model.CrawlDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Comparison")
	md.PlainText("")

	if diff.Base != nil && diff.Target != nil {
		md.Table(markdown.TableSet{
			Header: []string{"", "Base", "Target"},
			Rows: [][]string{
				{"Crawl ID", "`" + diff.Base.ID + "`", "`" + diff.Target.ID + "`"},
				{"Seed", cell(diff.Base.Seed), cell(diff.Target.Seed)},
				{"Started", diff.Base.StartedAt.Format("2006-01-02 15:04"), diff.Target.StartedAt.Format("2006-01-02 15:04")},
				{"Pages crawled", strconv.Itoa(diff.Base.PagesCrawled), strconv.Itoa(diff.Target.PagesCrawled)},
			},
		})
		md.PlainText("")
	}

	md.Table(markdown.TableSet{
		Header: []string{"", "Added", "Removed", "Common"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(len(diff.AddedPages)), strconv.Itoa(len(diff.RemovedPages)), strconv.Itoa(diff.CommonPages)},
			{"Links", strconv.Itoa(len(diff.AddedLinks)), strconv.Itoa(len(diff.RemovedLinks)), strconv.Itoa(diff.CommonLinks)},
		},
	})
	md.PlainText("")

	if !diff.Changed() {
		md.Tip("No structural changes between the crawls.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		md.H2(title)
		md.PlainText("")
		md.BulletList(items...)
		md.PlainText("")
	}
	writeList("Added Pages", cells(diff.AddedPages))
	writeList("Removed Pages", cells(diff.RemovedPages))

	if len(diff.AddedLinks) > 0 {
		md.H2("Added Links")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Source", "Target", "Count"}, Rows: linkRows(diff.AddedLinks)})
		md.PlainText("")
	}
	if len(diff.RemovedLinks) > 0 {
		md.H2("Removed Links")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Source", "Target", "Count"}, Rows: linkRows(diff.RemovedLinks)})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

func linkRows(links []model.LinkSummary) [][]string {
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{cell(l.Source), cell(l.Target), strconv.Itoa(l.Count)})
	}
	return rows
}

// cell escapes a value for a table cell.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func cells(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cell(v)
	}
	return out
}

// commonHost returns the host shared by every node, or "".
func commonHost(nodes []model.NodePosition) string {
	host := ""
	for i, n := range nodes {
		u, err := url.Parse(n.URL)
		if err != nil {
			return ""
		}
		if i == 0 {
			host = u.Host
		} else if u.Host != host {
			return ""
		}
	}
	return host
}

// flowchartLabel shortens a URL to its path when every node shares host.
// Quotes are replaced because mermaid labels are double-quoted.
func flowchartLabel(raw, host string) string {
	label := raw
	if host != "" {
		if u, err := url.Parse(raw); err == nil {
			label = u.EscapedPath()
			if label == "" {
				label = "/"
			}
			if u.RawQuery != "" {
				label += "?" + u.RawQuery
			}
		}
	}
	return strings.ReplaceAll(label, `"`, "#quot;")
}

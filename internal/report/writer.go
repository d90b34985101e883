package report

import (
	"cmp"
	"io"
	"slices"

	"github.com/nao1215/crawlgraph/internal/model"
)

// Writer outputs layout reports and crawl comparisons.
type Writer interface {
	// Write outputs a layout report and returns the bytes written.
	Write(report *model.LayoutReport) (int, error)

	// WriteDiff outputs the comparison of two crawls.
	WriteDiff(diff *model.CrawlDiff) (int, error)
}

// MultiWriter writes to several Writers in turn, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(report *model.LayoutReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDiff implements Writer.
func (m *MultiWriter) WriteDiff(diff *model.CrawlDiff) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDiff(diff)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// topNodes returns up to n nodes with the highest degree, ties in report order.
func topNodes(nodes []model.NodePosition, n int) []model.NodePosition {
	if len(nodes) <= n {
		return nodes
	}
	out := slices.Clone(nodes)
	slices.SortStableFunc(out, func(a, b model.NodePosition) int {
		return cmp.Compare(b.Degree, a.Degree)
	})
	return out[:n]
}

// topLinks returns up to n links with the highest count, ties in report order.
func topLinks(links []model.LinkSummary, n int) []model.LinkSummary {
	if len(links) <= n {
		return links
	}
	out := slices.Clone(links)
	slices.SortStableFunc(out, func(a, b model.LinkSummary) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out[:n]
}

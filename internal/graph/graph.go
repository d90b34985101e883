package graph

import "github.com/nao1215/crawlgraph/internal/model"

// Node is a page in the graph. ID is the page URL.
type Node struct {
	ID    string
	Index int
}

// Edge is a directed link from Source to Target.
// SourceIndex and TargetIndex are the insertion indices of the endpoints.
// Multiplicity is the number of edges sharing this source/target pair at
// the time of the snapshot.
type Edge struct {
	Source       string
	Target       string
	SourceIndex  int
	TargetIndex  int
	Multiplicity int
}

// SelfLoop reports whether the edge links a page to itself.
func (e Edge) SelfLoop() bool {
	return e.SourceIndex == e.TargetIndex
}

// Fingerprint is the structural summary of a model: its node and edge counts.
// Two fingerprints differ exactly when a merge changed the structure.
type Fingerprint struct {
	Nodes int
	Edges int
}

// Delta describes the effect of a single merge.
type Delta struct {
	NodesAdded int
	EdgesAdded int
	Before     Fingerprint
	After      Fingerprint
}

// Structural reports whether the merge changed node or edge cardinality.
func (d Delta) Structural() bool {
	return d.Before != d.After
}

type pair struct {
	source int
	target int
}

// Model is the deduplicated node set and append-only edge sequence.
type Model struct {
	index map[string]int
	nodes []Node
	edges []pair
	pairs map[pair]int
}

// New creates an empty model.
func New() *Model {
	return &Model{
		index: make(map[string]int),
		nodes: make([]Node, 0),
		edges: make([]pair, 0),
		pairs: make(map[pair]int),
	}
}

// Merge folds a crawl event into the model.
// An event without a parent is dropped. Empty child URLs are skipped.
// Every remaining child appends one edge, even when the pair already exists.
func (m *Model) Merge(ev model.CrawlEvent) Delta {
	before := m.Fingerprint()
	if !ev.HasParent() {
		return Delta{Before: before, After: before}
	}

	parent := m.ensure(ev.ParentURL)
	for _, child := range ev.ChildURLs {
		if child == "" {
			continue
		}
		p := pair{source: parent, target: m.ensure(child)}
		m.edges = append(m.edges, p)
		m.pairs[p]++
	}

	after := m.Fingerprint()
	return Delta{
		NodesAdded: after.Nodes - before.Nodes,
		EdgesAdded: after.Edges - before.Edges,
		Before:     before,
		After:      after,
	}
}

// ensure returns the index of id, adding a node when it is unseen.
func (m *Model) ensure(id string) int {
	if i, ok := m.index[id]; ok {
		return i
	}
	i := len(m.nodes)
	m.index[id] = i
	m.nodes = append(m.nodes, Node{ID: id, Index: i})
	return i
}

// Snapshot returns copies of the nodes and edges in insertion order.
func (m *Model) Snapshot() ([]Node, []Edge) {
	nodes := make([]Node, len(m.nodes))
	copy(nodes, m.nodes)

	edges := make([]Edge, len(m.edges))
	for i, p := range m.edges {
		edges[i] = Edge{
			Source:       m.nodes[p.source].ID,
			Target:       m.nodes[p.target].ID,
			SourceIndex:  p.source,
			TargetIndex:  p.target,
			Multiplicity: m.pairs[p],
		}
	}
	return nodes, edges
}

// Fingerprint returns the current node and edge counts.
func (m *Model) Fingerprint() Fingerprint {
	return Fingerprint{Nodes: len(m.nodes), Edges: len(m.edges)}
}

// Len returns the number of nodes.
func (m *Model) Len() int {
	return len(m.nodes)
}

// EdgeLen returns the number of edges, duplicates included.
func (m *Model) EdgeLen() int {
	return len(m.edges)
}

// Has reports whether url is a node.
func (m *Model) Has(url string) bool {
	_, ok := m.index[url]
	return ok
}

// Multiplicity returns how many edges link source to target.
func (m *Model) Multiplicity(source, target string) int {
	s, ok := m.index[source]
	if !ok {
		return 0
	}
	t, ok := m.index[target]
	if !ok {
		return 0
	}
	return m.pairs[pair{source: s, target: t}]
}

// Degrees returns the number of edge endpoints at each node, indexed by
// insertion order. A self loop counts twice.
func (m *Model) Degrees() []int {
	deg := make([]int, len(m.nodes))
	for _, p := range m.edges {
		deg[p.source]++
		deg[p.target]++
	}
	return deg
}

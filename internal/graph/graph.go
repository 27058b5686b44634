// Package graph holds the code graph: nodes, directed typed relationships,
// and the secondary indices used to answer lookups by id, kind, name and
// file. It performs no I/O apart from JSON encoding.
package graph

import (
	"sort"
	"sync"
)

type idSet map[string]struct{}

// Graph is the entity store. Plain methods are not safe for concurrent use;
// AddBatch is the one entry point that may be called from several
// goroutines at once.
type Graph struct {
	mu sync.Mutex

	nodes    map[string]*Node
	outgoing map[string][]Relationship
	incoming map[string][]Relationship

	byKind map[NodeKind]idSet
	byFile map[string]idSet
	byName map[string]idSet
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Relationship),
		incoming: make(map[string][]Relationship),
		byKind:   make(map[NodeKind]idSet),
		byFile:   make(map[string]idSet),
		byName:   make(map[string]idSet),
	}
}

// AddNode inserts n and registers it in every index. Adding a second node
// with an existing ID replaces the primary entry; index entries of both
// nodes are kept.
func (g *Graph) AddNode(n *Node) {
	addToIndex(g.byKind, n.Kind, n.ID)
	addToIndex(g.byFile, n.FilePath, n.ID)
	addToIndex(g.byName, n.Name, n.ID)

	if _, ok := g.outgoing[n.ID]; !ok {
		g.outgoing[n.ID] = []Relationship{}
	}
	if _, ok := g.incoming[n.ID]; !ok {
		g.incoming[n.ID] = []Relationship{}
	}
	g.nodes[n.ID] = n
}

// AddBatch inserts all nodes of one file under the graph mutex.
func (g *Graph) AddBatch(nodes []*Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range nodes {
		g.AddNode(n)
	}
}

// AddRelationship appends r to the outgoing bucket of its source and the
// incoming bucket of its target. Duplicates are not filtered.
func (g *Graph) AddRelationship(r Relationship) {
	g.outgoing[r.FromID] = append(g.outgoing[r.FromID], r)
	g.incoming[r.ToID] = append(g.incoming[r.ToID], r)
}

func addToIndex[K comparable](idx map[K]idSet, key K, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(idSet)
		idx[key] = set
	}
	set[id] = struct{}{}
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns every node in stable (file, line, id) order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	SortNodes(out)
	return out
}

// Outgoing returns the edges leaving id.
func (g *Graph) Outgoing(id string) []Relationship {
	return g.outgoing[id]
}

// Incoming returns the edges arriving at id.
func (g *Graph) Incoming(id string) []Relationship {
	return g.incoming[id]
}

// Relationships returns every edge grouped by source ID in sorted order,
// including edges whose source is not a node.
func (g *Graph) Relationships() []Relationship {
	from := make([]string, 0, len(g.outgoing))
	for id := range g.outgoing {
		from = append(from, id)
	}
	sort.Strings(from)
	var out []Relationship
	for _, id := range from {
		out = append(out, g.outgoing[id]...)
	}
	return out
}

// Files returns the distinct file paths that have at least one node, sorted.
func (g *Graph) Files() []string {
	files := make([]string, 0, len(g.byFile))
	for f := range g.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Rename changes a node's display name and moves its by-name index entry.
// Returns false if the node does not exist.
func (g *Graph) Rename(id, name string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	if n.Name == name {
		return true
	}
	if set, ok := g.byName[n.Name]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(g.byName, n.Name)
		}
	}
	n.Name = name
	addToIndex(g.byName, name, id)
	return true
}

// FindCallers returns nodes with a Calls edge into id.
func (g *Graph) FindCallers(id string) []*Node {
	var out []*Node
	for _, r := range g.incoming[id] {
		if r.Kind != RelCalls {
			continue
		}
		if n, ok := g.nodes[r.FromID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// FindCalled returns nodes that id has a Calls edge to.
func (g *Graph) FindCalled(id string) []*Node {
	var out []*Node
	for _, r := range g.outgoing[id] {
		if r.Kind != RelCalls {
			continue
		}
		if n, ok := g.nodes[r.ToID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// FindByKind returns all nodes of the given kind.
func (g *Graph) FindByKind(kind NodeKind) []*Node {
	return g.resolve(g.byKind[kind])
}

// FindByName returns all nodes whose current name equals name.
func (g *Graph) FindByName(name string) []*Node {
	return g.resolve(g.byName[name])
}

// FindInFile returns all nodes extracted from path.
func (g *Graph) FindInFile(path string) []*Node {
	return g.resolve(g.byFile[path])
}

func (g *Graph) resolve(ids idSet) []*Node {
	out := make([]*Node, 0, len(ids))
	for id := range ids {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	SortNodes(out)
	return out
}

// FindRelated returns every node reachable from id within depth hops,
// following edges in either direction. Traversal is breadth-first so each
// node is expanded once, at its shortest distance. Missing nodes are not
// returned and not expanded.
func (g *Graph) FindRelated(id string, depth int) []*Node {
	if _, ok := g.nodes[id]; !ok || depth < 0 {
		return nil
	}

	visited := map[string]int{id: 0}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		d := visited[current]
		if d >= depth {
			continue
		}
		var neighbors []string
		for _, r := range g.outgoing[current] {
			neighbors = append(neighbors, r.ToID)
		}
		for _, r := range g.incoming[current] {
			neighbors = append(neighbors, r.FromID)
		}
		for _, next := range neighbors {
			if _, seen := visited[next]; seen {
				continue
			}
			if _, ok := g.nodes[next]; !ok {
				continue
			}
			visited[next] = d + 1
			queue = append(queue, next)
		}
	}

	out := make([]*Node, 0, len(visited))
	for vid := range visited {
		out = append(out, g.nodes[vid])
	}
	SortNodes(out)
	return out
}

// NodeCount returns the number of distinct node IDs.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// RelationshipCount returns the number of directed edges, counted on the
// outgoing side.
func (g *Graph) RelationshipCount() int {
	total := 0
	for _, rels := range g.outgoing {
		total += len(rels)
	}
	return total
}

// CountByKind returns node counts keyed by kind.
func (g *Graph) CountByKind() map[NodeKind]int {
	out := make(map[NodeKind]int, len(g.byKind))
	for kind, ids := range g.byKind {
		out[kind] = len(ids)
	}
	return out
}

// SortNodes orders nodes by file path, start line, then ID.
func SortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineRange.Start != b.LineRange.Start {
			return a.LineRange.Start < b.LineRange.Start
		}
		return a.ID < b.ID
	})
}

package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// document is the on-disk JSON layout consumed by downstream tools. Field
// names are part of the export contract.
type document struct {
	Nodes         map[string]*Node          `json:"nodes"`
	OutgoingEdges map[string][]Relationship `json:"outgoing_edges"`
	IncomingEdges map[string][]Relationship `json:"incoming_edges"`
	NodesByType   map[NodeKind][]string     `json:"nodes_by_type"`
	NodesByFile   map[string][]string       `json:"nodes_by_file"`
	NodesByName   map[string][]string       `json:"nodes_by_name"`
}

// WriteJSON encodes the graph as an indented JSON document.
func (g *Graph) WriteJSON(w io.Writer) error {
	doc := document{
		Nodes:         g.nodes,
		OutgoingEdges: g.outgoing,
		IncomingEdges: g.incoming,
		NodesByType:   flattenIndex(g.byKind),
		NodesByFile:   flattenIndex(g.byFile),
		NodesByName:   flattenIndex(g.byName),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("graph: encode json: %w", err)
	}
	return nil
}

func flattenIndex[K comparable](idx map[K]idSet) map[K][]string {
	out := make(map[K][]string, len(idx))
	for key, set := range idx {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[key] = ids
	}
	return out
}

// ReadJSON decodes a document written by WriteJSON. Indices are rebuilt
// from the nodes rather than trusted from the document.
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("graph: decode json: %w", err)
	}

	g := New()
	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := doc.Nodes[id]
		if n == nil {
			continue
		}
		if n.Metadata == nil {
			n.Metadata = make(map[string]string)
		}
		g.AddNode(n)
	}

	from := make([]string, 0, len(doc.OutgoingEdges))
	for id := range doc.OutgoingEdges {
		from = append(from, id)
	}
	sort.Strings(from)
	for _, id := range from {
		for _, rel := range doc.OutgoingEdges[id] {
			if rel.Metadata == nil {
				rel.Metadata = make(map[string]string)
			}
			g.AddRelationship(rel)
		}
	}
	return g, nil
}

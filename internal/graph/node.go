package graph

import (
	"encoding/json"
	"fmt"
)

// NodeKind classifies an extracted code entity.
type NodeKind string

const (
	KindFunction       NodeKind = "Function"
	KindMethod         NodeKind = "Method"
	KindClass          NodeKind = "Class"
	KindInterface      NodeKind = "Interface"
	KindModule         NodeKind = "Module"
	KindTypeDefinition NodeKind = "TypeDefinition"
	KindUnknown        NodeKind = "Unknown"
)

// Metadata keys recognized by the passes. Extractors may set others, but
// only these carry meaning for inference and enhancement.
const (
	// MetaParentClass names the enclosing type of a method (receiver type,
	// impl block, class body).
	MetaParentClass = "parent_class"
	// MetaLanguage is the language tag the node was extracted with.
	MetaLanguage = "language"
	// MetaOriginalName keeps the unqualified name once a method is renamed
	// to Owner::name.
	MetaOriginalName = "original_name"
)

// LineRange is an inclusive, 1-based line span.
type LineRange struct {
	Start int
	End   int
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// StrictlyInside reports whether r is nested inside outer with no shared
// boundary line.
func (r LineRange) StrictlyInside(outer LineRange) bool {
	return r.Start > outer.Start && r.End < outer.End
}

// MarshalJSON encodes the range as a two-element array [start, end].
func (r LineRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

func (r *LineRange) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("line range: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// Node is one indexed code entity. ID, Kind, FilePath, LineRange and Content
// are fixed at extraction time; Name, Summary and Metadata may be rewritten
// by the enhancement passes.
type Node struct {
	ID        string            `json:"id"`
	Kind      NodeKind          `json:"node_type"`
	Name      string            `json:"name"`
	FilePath  string            `json:"file_path"`
	LineRange LineRange         `json:"line_range"`
	Content   string            `json:"content"`
	Summary   *string           `json:"summary"`
	Metadata  map[string]string `json:"metadata"`
}

// NewNode creates a node with an empty metadata map.
func NewNode(id string, kind NodeKind, name, filePath string, lines LineRange, content string) *Node {
	return &Node{
		ID:        id,
		Kind:      kind,
		Name:      name,
		FilePath:  filePath,
		LineRange: lines,
		Content:   content,
		Metadata:  make(map[string]string),
	}
}

// SetMeta sets a metadata key, allocating the map if needed.
func (n *Node) SetMeta(key, value string) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}
	n.Metadata[key] = value
}

// Meta returns a metadata value and whether it was present.
func (n *Node) Meta(key string) (string, bool) {
	v, ok := n.Metadata[key]
	return v, ok
}

// IsCallable reports whether the node is a Function or Method.
func (n *Node) IsCallable() bool {
	return n.Kind == KindFunction || n.Kind == KindMethod
}

// IsType reports whether the node is a Class or Interface.
func (n *Node) IsType() bool {
	return n.Kind == KindClass || n.Kind == KindInterface
}

package graph

// RelationKind is the type of a directed edge.
type RelationKind string

const (
	RelCalls      RelationKind = "Calls"
	RelImports    RelationKind = "Imports"
	RelInherits   RelationKind = "Inherits"
	RelReferences RelationKind = "References"
	RelImplements RelationKind = "Implements"
	RelContains   RelationKind = "Contains"
	RelDependsOn  RelationKind = "DependsOn"
)

// Relationship is a directed, typed edge between two node IDs. Neither
// endpoint is required to exist in the graph.
type Relationship struct {
	Kind     RelationKind      `json:"relationship_type"`
	FromID   string            `json:"from_id"`
	ToID     string            `json:"to_id"`
	Metadata map[string]string `json:"metadata"`
}

// NewRelationship creates an edge with an empty metadata map.
func NewRelationship(kind RelationKind, fromID, toID string) Relationship {
	return Relationship{
		Kind:     kind,
		FromID:   fromID,
		ToID:     toID,
		Metadata: make(map[string]string),
	}
}

// EdgeKey identifies an edge for deduplication.
type EdgeKey struct {
	FromID string
	ToID   string
	Kind   RelationKind
}

// Key returns the (from, to, kind) triple of the edge.
func (r Relationship) Key() EdgeKey {
	return EdgeKey{FromID: r.FromID, ToID: r.ToID, Kind: r.Kind}
}

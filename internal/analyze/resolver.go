package analyze

import "github.com/jward/codegraph/internal/graph"

// MinNameLength is the shortest name that takes part in call and import
// inference. Shorter names match too much to be useful.
const MinNameLength = 3

// Resolver maps a name called from caller to the nodes the call may refer
// to. Implementations need not filter out the caller itself.
type Resolver interface {
	ResolveCall(caller *graph.Node, name string) []*graph.Node
}

// NameResolver matches calls by exact name against every Function and
// Method in the graph, with no regard for scope or imports.
type NameResolver struct {
	byName map[string][]*graph.Node
}

// NewNameResolver indexes the callable nodes of g by name.
func NewNameResolver(g *graph.Graph) *NameResolver {
	r := &NameResolver{byName: make(map[string][]*graph.Node)}
	for _, kind := range []graph.NodeKind{graph.KindFunction, graph.KindMethod} {
		for _, n := range g.FindByKind(kind) {
			if len(n.Name) < MinNameLength {
				continue
			}
			r.byName[n.Name] = append(r.byName[n.Name], n)
		}
	}
	return r
}

// ResolveCall implements Resolver.
func (r *NameResolver) ResolveCall(_ *graph.Node, name string) []*graph.Node {
	if len(name) < MinNameLength {
		return nil
	}
	return r.byName[name]
}

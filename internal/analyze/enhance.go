package analyze

import (
	"strings"

	"github.com/jward/codegraph/internal/graph"
)

// QualifyMethodNames renames every Method that has a parent_class to
// "Owner::name" and keeps the bare name under original_name. Running it
// again changes nothing. Returns the number of nodes renamed.
func QualifyMethodNames(g *graph.Graph) int {
	renamed := 0
	for _, m := range g.FindByKind(graph.KindMethod) {
		owner, ok := m.Meta(graph.MetaParentClass)
		if !ok || owner == "" {
			continue
		}
		prefix := owner + "::"

		base, ok := m.Meta(graph.MetaOriginalName)
		if !ok {
			base = strings.TrimPrefix(m.Name, prefix)
		}
		qualified := prefix + base
		m.SetMeta(graph.MetaOriginalName, base)
		if m.Name == qualified {
			continue
		}
		g.Rename(m.ID, qualified)
		renamed++
	}
	return renamed
}

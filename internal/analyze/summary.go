package analyze

import (
	"context"

	"github.com/jward/codegraph/internal/graph"
)

// Summarizer produces a one-line description of a node.
type Summarizer interface {
	Summarize(ctx context.Context, n *graph.Node) (string, error)
}

// TemplateSummarizer derives a summary from the node kind and name alone.
type TemplateSummarizer struct{}

// Summarize implements Summarizer.
func (TemplateSummarizer) Summarize(_ context.Context, n *graph.Node) (string, error) {
	return TemplateSummary(n), nil
}

// TemplateSummary returns the fixed-phrase summary for n.
func TemplateSummary(n *graph.Node) string {
	switch n.Kind {
	case graph.KindFunction:
		return "Function that handles " + n.Name
	case graph.KindMethod:
		return "Method that implements " + n.Name
	case graph.KindClass:
		return "Class that represents " + n.Name
	case graph.KindInterface:
		return "Interface for " + n.Name
	case graph.KindModule:
		return "Module containing " + n.Name
	case graph.KindTypeDefinition:
		return "Type definition for " + n.Name
	default:
		return "Code unit: " + n.Name
	}
}

// GenerateSummaries sets the summary of every node using s, or the
// template when s is nil. A summarizer error is logged and the template
// summary used instead. Returns the number of summaries per kind.
func GenerateSummaries(ctx context.Context, g *graph.Graph, s Summarizer, opts ...Option) (map[graph.NodeKind]int, error) {
	cfg := newConfig(opts)
	if s == nil {
		s = TemplateSummarizer{}
	}

	counts := make(map[graph.NodeKind]int)
	for _, n := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		text, err := s.Summarize(ctx, n)
		if err != nil {
			cfg.logger.Warn("summarizer failed, using template", "path", n.FilePath, "name", n.Name, "error", err)
			text = TemplateSummary(n)
		}
		n.Summary = &text
		counts[n.Kind]++
	}
	for kind, count := range counts {
		cfg.logger.Debug("summaries generated", "kind", kind, "nodes", count)
	}
	return counts, nil
}

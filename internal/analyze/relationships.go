// Package analyze runs the passes that follow extraction: relationship
// inference over the whole graph, method name qualification and summary
// generation. Every pass is single-threaded and must run only after all
// extraction results have been merged.
package analyze

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/codegraph/internal/extract"
	"github.com/jward/codegraph/internal/graph"
)

// InferStats reports what relationship inference produced.
type InferStats struct {
	// Files is the number of files whose content was analyzed.
	Files int
	// Skipped counts files with no extractor or unreadable content.
	Skipped int
	// Candidates counts edges proposed per kind, before deduplication.
	Candidates map[graph.RelationKind]int
	// Added counts edges inserted per kind.
	Added map[graph.RelationKind]int
}

// TotalAdded returns the number of edges inserted.
func (s InferStats) TotalAdded() int {
	total := 0
	for _, n := range s.Added {
		total += n
	}
	return total
}

// Infer derives Calls, Imports and Contains edges from the nodes already in
// g and adds them, deduplicated by (from, to, kind). Per-file failures are
// logged and skipped. Returns ctx.Err() if cancelled between files; edges
// are only inserted once every file has been processed.
func Infer(ctx context.Context, g *graph.Graph, reg *extract.Registry, opts ...Option) (InferStats, error) {
	cfg := newConfig(opts)
	stats := InferStats{
		Candidates: make(map[graph.RelationKind]int),
		Added:      make(map[graph.RelationKind]int),
	}

	sources := cfg.sources
	if sources == nil {
		cache, err := NewSourceCache(DefaultSourceCacheSize)
		if err != nil {
			return stats, err
		}
		sources = cache
	}

	resolver := cfg.newResolver(g)
	importTargets := importTargets(g)
	files, all, named := groupByFile(g)

	var candidates []graph.Relationship
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		candidates = append(candidates, containmentEdges(all[file])...)
		nodes := named[file]

		ext, lang, ok := reg.ForFile(file)
		if !ok {
			cfg.logger.Warn("no extractor for file", "path", file, "language", lang)
			stats.Skipped++
			continue
		}
		content, err := sources.Read(file)
		if err != nil {
			cfg.logger.Warn("failed to read file", "path", file, "error", err)
			stats.Skipped++
			continue
		}
		stats.Files++

		candidates = append(candidates, callEdges(cfg, file, content, nodes, ext, resolver)...)
		candidates = append(candidates, importEdges(cfg, file, content, nodes, ext, importTargets)...)
	}
	candidates = append(candidates, methodContainmentEdges(g)...)

	seen := make(map[graph.EdgeKey]bool, len(candidates))
	for _, r := range candidates {
		stats.Candidates[r.Kind]++
		key := r.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		g.AddRelationship(r)
		stats.Added[r.Kind]++
	}

	cfg.logger.Info("relationships inferred",
		"files", stats.Files,
		"skipped", stats.Skipped,
		"relationships", stats.TotalAdded(),
	)
	return stats, nil
}

// groupByFile buckets nodes by file path. The second map holds only the
// nodes with names of at least MinNameLength, which are the call and
// import sources. Files are returned sorted.
func groupByFile(g *graph.Graph) ([]string, map[string][]*graph.Node, map[string][]*graph.Node) {
	all := make(map[string][]*graph.Node)
	sources := make(map[string][]*graph.Node)
	for _, n := range g.Nodes() {
		all[n.FilePath] = append(all[n.FilePath], n)
		if len(n.Name) >= MinNameLength {
			sources[n.FilePath] = append(sources[n.FilePath], n)
		}
	}
	files := make([]string, 0, len(all))
	for f := range all {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, all, sources
}

func callEdges(cfg *config, file string, content []byte, nodes []*graph.Node, ext extract.Extractor, r Resolver) []graph.Relationship {
	var out []graph.Relationship
	for _, caller := range nodes {
		if !caller.IsCallable() {
			continue
		}
		names, err := ext.ExtractCalledNames(content, caller.LineRange, caller.Name)
		if err != nil {
			cfg.logger.Warn("call extraction failed", "path", file, "name", caller.Name, "error", err)
			continue
		}
		for _, name := range names {
			if len(name) < MinNameLength {
				continue
			}
			for _, target := range r.ResolveCall(caller, name) {
				if target.ID == caller.ID {
					continue
				}
				out = append(out, graph.NewRelationship(graph.RelCalls, caller.ID, target.ID))
			}
		}
	}
	return out
}

// importTargets returns every Module, Class and Interface node in
// (file, line, id) order so the first match for an import is stable.
func importTargets(g *graph.Graph) []*graph.Node {
	var targets []*graph.Node
	for _, kind := range []graph.NodeKind{graph.KindModule, graph.KindClass, graph.KindInterface} {
		targets = append(targets, g.FindByKind(kind)...)
	}
	graph.SortNodes(targets)
	return targets
}

func importEdges(cfg *config, file string, content []byte, nodes []*graph.Node, ext extract.Extractor, targets []*graph.Node) []graph.Relationship {
	names, err := ext.ExtractImportedNames(content)
	if err != nil {
		cfg.logger.Warn("import extraction failed", "path", file, "error", err)
		return nil
	}

	var out []graph.Relationship
	for _, name := range names {
		if name == "" {
			continue
		}
		for _, target := range targets {
			if target.FilePath == file {
				continue
			}
			if target.Name != name && fileStem(target.FilePath) != name {
				continue
			}
			for _, src := range nodes {
				out = append(out, graph.NewRelationship(graph.RelImports, src.ID, target.ID))
			}
			break
		}
	}
	return out
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// containmentEdges links each Class or Interface in one file to every other
// one nested strictly inside its line range.
func containmentEdges(nodes []*graph.Node) []graph.Relationship {
	var types []*graph.Node
	for _, n := range nodes {
		if n.IsType() {
			types = append(types, n)
		}
	}
	if len(types) <= 1 {
		return nil
	}
	sort.SliceStable(types, func(i, j int) bool {
		return types[i].LineRange.Start < types[j].LineRange.Start
	})

	var out []graph.Relationship
	for i, outer := range types {
		for j, inner := range types {
			if i == j {
				continue
			}
			if inner.LineRange.StrictlyInside(outer.LineRange) {
				out = append(out, graph.NewRelationship(graph.RelContains, outer.ID, inner.ID))
			}
		}
	}
	return out
}

// methodContainmentEdges links every Class or Interface named by a
// method's parent_class to that method.
func methodContainmentEdges(g *graph.Graph) []graph.Relationship {
	var out []graph.Relationship
	for _, m := range g.FindByKind(graph.KindMethod) {
		owner, ok := m.Meta(graph.MetaParentClass)
		if !ok || owner == "" {
			continue
		}
		for _, c := range g.FindByName(owner) {
			if c.IsType() {
				out = append(out, graph.NewRelationship(graph.RelContains, c.ID, m.ID))
			}
		}
	}
	return out
}

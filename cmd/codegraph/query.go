package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jward/codegraph"
	"github.com/jward/codegraph/internal/extract"
	"github.com/jward/codegraph/internal/graph"
)

func (a *app) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query an exported graph",
		Long: "Run queries against a graph written by codegraph, in either JSON or SQLite form.\n" +
			"A <name> argument matches a node ID or a node name (methods are Owner::name).",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(a.queryFormat)
		},
	}
	cmd.PersistentFlags().StringVar(&a.queryFormat, "format", "json", "output format: json|text")

	callers := &cobra.Command{
		Use:   "callers <graph-file> <name>",
		Short: "List nodes that call <name>",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runCallers,
	}
	callees := &cobra.Command{
		Use:   "callees <graph-file> <name>",
		Short: "List nodes called by <name>",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runCallees,
	}
	related := &cobra.Command{
		Use:   "related <graph-file> <name>",
		Short: "List nodes within --depth hops of <name>, following edges both ways",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runRelated,
	}
	related.Flags().IntVar(&a.depth, "depth", 2, "maximum number of hops")

	find := &cobra.Command{
		Use:   "find <graph-file> [name]",
		Short: "Find nodes by name, kind or file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  a.runFind,
	}
	find.Flags().StringVar(&a.kind, "kind", "", "filter by node kind (e.g. Function, Class)")
	find.Flags().StringVar(&a.file, "file", "", "filter by file path")

	refs := &cobra.Command{
		Use:   "refs <graph-file> <identifier>",
		Short: "List textual references to <identifier> in the indexed files",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runRefs,
	}
	stats := &cobra.Command{
		Use:   "stats <graph-file>",
		Short: "Summarize a graph",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runStats,
	}

	cmd.AddCommand(callers, callees, related, find, refs, stats)
	return cmd
}

// --- Helpers ---

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid --format %q: must be json or text", format)
}

// loadGraph reads the graph file named by the first argument.
func loadGraph(ctx context.Context, path string) (*codegraph.Graph, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("graph not found: %s (run 'codegraph <root_path> %s' first)", path, path)
	}
	return codegraph.LoadGraphFile(ctx, path)
}

// lookupNodes resolves a node ID or name.
func lookupNodes(g *codegraph.Graph, nameOrID string) ([]*codegraph.Node, error) {
	if n := g.Node(nameOrID); n != nil {
		return []*codegraph.Node{n}, nil
	}
	nodes := g.FindByName(nameOrID)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no node named %q", nameOrID)
	}
	return nodes, nil
}

func nodeToCLI(n *codegraph.Node) CLINode {
	out := CLINode{
		ID:        n.ID,
		Name:      n.Name,
		Kind:      string(n.Kind),
		File:      n.FilePath,
		StartLine: n.LineRange.Start,
		EndLine:   n.LineRange.End,
		Metadata:  n.Metadata,
	}
	if n.Summary != nil {
		out.Summary = *n.Summary
	}
	return out
}

func nodesToCLI(nodes []*codegraph.Node) []CLINode {
	graph.SortNodes(nodes)
	out := make([]CLINode, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, nodeToCLI(n))
	}
	return out
}

// outputResult marshals a CLIResult to stdout in the selected format.
func (a *app) outputResult(result CLIResult) error {
	if a.queryFormat == "text" {
		return a.outputResultText(result)
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (a *app) outputError(command string, err error) error {
	a.errorHandled = true
	if a.queryFormat == "text" {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func (a *app) outputNodes(command string, nodes []*codegraph.Node) error {
	results := nodesToCLI(nodes)
	total := len(results)
	return a.outputResult(CLIResult{Command: command, Results: results, TotalCount: &total})
}

// --- Commands ---

func (a *app) runCallers(cmd *cobra.Command, args []string) error {
	return a.runNeighbors(cmd.Context(), "callers", args, (*codegraph.Graph).FindCallers)
}

func (a *app) runCallees(cmd *cobra.Command, args []string) error {
	return a.runNeighbors(cmd.Context(), "callees", args, (*codegraph.Graph).FindCalled)
}

func (a *app) runNeighbors(ctx context.Context, command string, args []string, next func(*codegraph.Graph, string) []*codegraph.Node) error {
	g, err := loadGraph(ctx, args[0])
	if err != nil {
		return a.outputError(command, err)
	}
	targets, err := lookupNodes(g, args[1])
	if err != nil {
		return a.outputError(command, err)
	}
	var found []*codegraph.Node
	for _, t := range targets {
		found = append(found, next(g, t.ID)...)
	}
	return a.outputNodes(command, found)
}

func (a *app) runRelated(cmd *cobra.Command, args []string) error {
	if a.depth < 0 {
		return a.outputError("related", fmt.Errorf("invalid --depth %d: must be non-negative", a.depth))
	}
	g, err := loadGraph(cmd.Context(), args[0])
	if err != nil {
		return a.outputError("related", err)
	}
	targets, err := lookupNodes(g, args[1])
	if err != nil {
		return a.outputError("related", err)
	}
	var found []*codegraph.Node
	for _, t := range targets {
		found = append(found, g.FindRelated(t.ID, a.depth)...)
	}
	return a.outputNodes("related", found)
}

func (a *app) runFind(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd.Context(), args[0])
	if err != nil {
		return a.outputError("find", err)
	}

	var nodes []*codegraph.Node
	switch {
	case len(args) > 1:
		nodes = g.FindByName(args[1])
	case a.file != "":
		nodes = g.FindInFile(a.file)
	case a.kind != "":
		nodes = g.FindByKind(codegraph.NodeKind(a.kind))
	default:
		nodes = g.Nodes()
	}

	filtered := nodes[:0]
	for _, n := range nodes {
		if a.kind != "" && string(n.Kind) != a.kind {
			continue
		}
		if a.file != "" && n.FilePath != a.file {
			continue
		}
		filtered = append(filtered, n)
	}
	return a.outputNodes("find", filtered)
}

// runRefs re-reads every file in the graph and asks its extractor where
// the identifier is referenced.
func (a *app) runRefs(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd.Context(), args[0])
	if err != nil {
		return a.outputError("refs", err)
	}
	ident := args[1]
	reg := extract.DefaultRegistry(nil)

	results := []CLIReference{}
	for _, path := range g.Files() {
		ext, _, ok := reg.ForFile(path)
		if !ok {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(a.stderr, "warning: skipping %s: %v\n", path, err)
			continue
		}
		whole := graph.LineRange{Start: 1, End: countLines(content)}
		ranges, err := ext.ExtractReferencedRanges(content, whole, ident)
		if err != nil {
			fmt.Fprintf(a.stderr, "warning: skipping %s: %v\n", path, err)
			continue
		}
		for _, r := range ranges {
			results = append(results, CLIReference{File: path, StartLine: r.Start, EndLine: r.End})
		}
	}
	total := len(results)
	return a.outputResult(CLIResult{Command: "refs", Results: results, TotalCount: &total})
}

func countLines(content []byte) int {
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}

func (a *app) runStats(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd.Context(), args[0])
	if err != nil {
		return a.outputError("stats", err)
	}
	stats := CLIStats{
		Files:         len(g.Files()),
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
		NodesByKind:   make(map[string]int),
		EdgesByKind:   make(map[string]int),
	}
	for kind, n := range g.CountByKind() {
		stats.NodesByKind[string(kind)] = n
	}
	for _, r := range g.Relationships() {
		stats.EdgesByKind[string(r.Kind)]++
	}
	return a.outputResult(CLIResult{Command: "stats", Results: stats})
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// outputResultText dispatches text formatting by result type.
func (a *app) outputResultText(result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLINode:
		formatNodesText(a.stdout, v)
	case []CLIReference:
		formatReferencesText(a.stdout, v)
	case CLIStats:
		formatStatsText(a.stdout, v)
	default:
		fmt.Fprintf(a.stdout, "%v\n", v)
	}
	return nil
}

// formatNodesText formats CLINode results as aligned columns.
func formatNodesText(w io.Writer, nodes []CLINode) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINES\tID")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%s\n",
			n.Name, n.Kind, n.File, n.StartLine, n.EndLine, n.ID)
	}
	tw.Flush()
}

// formatReferencesText formats CLIReference results as "file:start-end" lines.
func formatReferencesText(w io.Writer, refs []CLIReference) {
	for _, r := range refs {
		if r.StartLine == r.EndLine {
			fmt.Fprintf(w, "%s:%d\n", r.File, r.StartLine)
			continue
		}
		fmt.Fprintf(w, "%s:%d-%d\n", r.File, r.StartLine, r.EndLine)
	}
}

// formatStatsText formats CLIStats as readable text.
func formatStatsText(w io.Writer, s CLIStats) {
	fmt.Fprintln(w, "Graph Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Nodes: %d\n", s.Nodes)
	fmt.Fprintf(w, "Relationships: %d\n", s.Relationships)

	if len(s.NodesByKind) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Nodes by kind:")
		for _, k := range sortedKeys(s.NodesByKind) {
			fmt.Fprintf(w, "  %s: %d\n", k, s.NodesByKind[k])
		}
	}
	if len(s.EdgesByKind) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Relationships by kind:")
		for _, k := range sortedKeys(s.EdgesByKind) {
			fmt.Fprintf(w, "  %s: %d\n", k, s.EdgesByKind[k])
		}
	}
}

package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLINode is a JSON-friendly node representation.
type CLINode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      string            `json:"kind"`
	File      string            `json:"file"`
	StartLine int               `json:"start_line"`
	EndLine   int               `json:"end_line"`
	Summary   string            `json:"summary,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CLIReference is one textual reference to an identifier.
type CLIReference struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// CLIStats summarizes a graph.
type CLIStats struct {
	Files         int            `json:"files"`
	Nodes         int            `json:"nodes"`
	Relationships int            `json:"relationships"`
	NodesByKind   map[string]int `json:"nodes_by_kind"`
	EdgesByKind   map[string]int `json:"edges_by_kind"`
}

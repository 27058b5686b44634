package codegraph

import (
	"time"

	"github.com/jward/codegraph/internal/graph"
)

// Public aliases for the graph types returned by the Engine. Consumers use
// these names; no conversion is needed.

type Graph = graph.Graph
type Node = graph.Node
type Relationship = graph.Relationship
type NodeKind = graph.NodeKind
type RelationKind = graph.RelationKind
type LineRange = graph.LineRange

// IndexStats reports the outcome of IndexFiles.
type IndexStats struct {
	// Files is the number of paths handed to the worker pool.
	Files int
	// Indexed counts files whose entities were merged into the graph.
	Indexed int
	// Skipped counts unreadable, unsupported or unparsable files.
	Skipped int
	// Nodes is the number of entities extracted.
	Nodes int
}

// AnalyzeStats reports the outcome of Analyze.
type AnalyzeStats struct {
	Relationships map[RelationKind]int
	Qualified     int
	Summaries     int
}

// BuildStats reports the outcome of Build.
type BuildStats struct {
	Index             IndexStats
	Analyze           AnalyzeStats
	NodeCount         int
	RelationshipCount int
	Duration          time.Duration
}

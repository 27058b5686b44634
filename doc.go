// Package codegraph turns a multi-language source tree into a queryable
// graph of code entities and the relationships between them. Entities are
// functions, methods, classes, interfaces, modules and type definitions,
// extracted with tree-sitter for Go, Python, JavaScript, TypeScript, Rust,
// Java, C, C++, PHP and Ruby.
//
// # Pipeline
//
// An [Engine] builds a graph in two phases:
//
//  1. Extract: files are discovered (git ls-files, or a walk honoring
//     .gitignore) and handed to a fixed-size worker pool. Each worker parses
//     one file and merges its entities into the graph in a single batch.
//
//  2. Analyze: once every worker has finished, a single-threaded pass
//     infers Calls, Imports and Contains edges, qualifies method names as
//     Owner::name and attaches a summary to every node.
//
// Matching is by name across the whole program. There is no type checking
// or scope-aware binding, so a call to a common name fans out to every
// function with that name.
//
// # Usage
//
//	e, err := codegraph.New(codegraph.WithWorkers(8))
//	if err != nil { ... }
//
//	ctx := context.Background()
//	if _, err := e.Build(ctx, "path/to/project"); err != nil { ... }
//
//	err = codegraph.Export(ctx, e.Graph(), "path/to/project", "code_graph.json", codegraph.FormatJSON)
//
// # Export
//
// [WriteJSONFile] writes the graph document (nodes, both adjacency maps and
// the kind, file and name indices). [WriteSQLiteFile] writes the same graph
// to a SQLite database. Both write to a temporary file and rename it into
// place, so a failed export leaves no output. [LoadGraphFile] reads either
// format back.
package codegraph

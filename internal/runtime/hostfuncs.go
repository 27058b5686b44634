package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codegraph/internal/extract"
	"github.com/jward/codegraph/internal/graph"
)

// makeCapturesFn creates the "captures" host function bound to one node.
//
// captures(pattern) → []map[string]string
//
// The node's own content is parsed with its language grammar and pattern
// run over it. Each map has capture names as keys and the captured text as
// values.
func makeCapturesFn(n *graph.Node) *object.Builtin {
	return object.NewBuiltin("captures", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("captures", 1, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("captures: pattern must be a string, got %s", args[0].Type())
		}

		lang, _ := n.Meta(graph.MetaLanguage)
		grammar, found := extract.GrammarForLanguage(lang)
		if !found {
			return object.Errorf("captures: unsupported language %q", lang)
		}
		src := []byte(n.Content)

		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(grammar)
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return object.Errorf("captures: tree-sitter parse failed: %v", err)
		}
		defer tree.Close()

		q, err := sitter.NewQuery([]byte(pattern.Value()), grammar)
		if err != nil {
			return object.Errorf("captures: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, tree.RootNode())

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)
			if len(match.Captures) == 0 {
				continue
			}
			m := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				m[q.CaptureNameForId(c.Index)] = object.NewString(c.Node.Content(src))
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// nodeGlobals exposes n to a script.
func nodeGlobals(n *graph.Node) map[string]any {
	meta := make(map[string]object.Object, len(n.Metadata))
	for k, v := range n.Metadata {
		meta[k] = object.NewString(v)
	}
	return map[string]any{
		"name":       object.NewString(n.Name),
		"kind":       object.NewString(string(n.Kind)),
		"file_path":  object.NewString(n.FilePath),
		"start_line": object.NewInt(int64(n.LineRange.Start)),
		"end_line":   object.NewInt(int64(n.LineRange.End)),
		"content":    object.NewString(n.Content),
		"metadata":   object.NewMap(meta),
		"captures":   makeCapturesFn(n),
	}
}

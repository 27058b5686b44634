package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/codegraph/internal/graph"
)

// ScriptSummarizer produces node summaries by running a Risor script once
// per node. The script's last expression must be a non-empty string.
//
// Globals: name, kind, file_path, start_line, end_line, content, metadata,
// captures(pattern), log.
type ScriptSummarizer struct {
	rt     *Runtime
	source string
	label  string
}

// NewScriptSummarizer wraps inline script source.
func NewScriptSummarizer(rt *Runtime, source, label string) *ScriptSummarizer {
	return &ScriptSummarizer{rt: rt, source: source, label: label}
}

// LoadScriptSummarizer reads the script at path. Imports inside the script
// resolve relative to its directory.
func LoadScriptSummarizer(path string, opts ...RuntimeOption) (*ScriptSummarizer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("runtime: resolve script path: %w", err)
	}
	rt := NewRuntime(filepath.Dir(abs), opts...)
	src, err := rt.LoadScript(abs)
	if err != nil {
		return nil, err
	}
	return NewScriptSummarizer(rt, src, filepath.Base(path)), nil
}

// Summarize runs the script for n.
func (s *ScriptSummarizer) Summarize(ctx context.Context, n *graph.Node) (string, error) {
	result, err := s.rt.Eval(ctx, s.source, s.label, nodeGlobals(n))
	if err != nil {
		return "", err
	}
	str, ok := result.(*object.String)
	if !ok {
		typ := "nil"
		if result != nil {
			typ = string(result.Type())
		}
		return "", fmt.Errorf("runtime: script %s returned %s, want string", s.label, typ)
	}
	summary := strings.TrimSpace(str.Value())
	if summary == "" {
		return "", fmt.Errorf("runtime: script %s returned an empty summary", s.label)
	}
	return summary, nil
}

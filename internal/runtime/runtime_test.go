package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codegraph/internal/graph"
)

func quietRuntime(dir string, opts ...RuntimeOption) *Runtime {
	opts = append(opts, WithRuntimeLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewRuntime(dir, opts...)
}

func testNode() *graph.Node {
	n := graph.NewNode("n1", graph.KindMethod, "Widget::render", "/ui/widget.go",
		graph.LineRange{Start: 10, End: 14},
		"func (w *Widget) render() {\n\tw.layout()\n\tpaint(w)\n\tflush()\n}")
	n.SetMeta(graph.MetaParentClass, "Widget")
	n.SetMeta(graph.MetaLanguage, "go")
	return n
}

// --- Eval & script loading ---

func TestEval_ReturnsLastExpression(t *testing.T) {
	t.Parallel()
	rt := quietRuntime("")

	result, err := rt.Eval(context.Background(), `x := 40
x + 2`, "inline", nil)
	require.NoError(t, err)
	i, ok := result.(*object.Int)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, int64(42), i.Value())
}

func TestEval_ScriptError(t *testing.T) {
	t.Parallel()
	rt := quietRuntime("")

	_, err := rt.Eval(context.Background(), `undefined_thing()`, "broken.risor", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.risor")
}

func TestEval_LogGlobal(t *testing.T) {
	t.Parallel()
	rt := quietRuntime("")

	_, err := rt.Eval(context.Background(), `log.Info("hello")
"done"`, "inline", nil)
	require.NoError(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "summary.risor")
	content := `name`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := quietRuntime(dir)
	got, err := rt.LoadScript("summary.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	content := `kind`
	mapFS := fstest.MapFS{
		"summaries/short.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := quietRuntime("", WithRuntimeFS(mapFS))

	// Absolute-style path should be resolved within the FS.
	got, err := rt.LoadScript("/summaries/short.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- ScriptSummarizer ---

func TestScriptSummarizer_NodeGlobals(t *testing.T) {
	t.Parallel()
	s := NewScriptSummarizer(quietRuntime(""), `'{kind} {name} in {file_path}:{start_line}-{end_line} of {metadata["parent_class"]}'`, "inline")

	got, err := s.Summarize(context.Background(), testNode())
	require.NoError(t, err)
	assert.Equal(t, "Method Widget::render in /ui/widget.go:10-14 of Widget", got)
}

func TestScriptSummarizer_Captures(t *testing.T) {
	t.Parallel()
	s := NewScriptSummarizer(quietRuntime(""), `
calls := captures("(call_expression function: (identifier) @fn)")
'{name} makes {len(calls)} direct calls, first {calls[0]["fn"]}'
`, "inline")

	got, err := s.Summarize(context.Background(), testNode())
	require.NoError(t, err)
	assert.Equal(t, "Widget::render makes 2 direct calls, first paint", got)
}

func TestScriptSummarizer_RejectsNonString(t *testing.T) {
	t.Parallel()
	s := NewScriptSummarizer(quietRuntime(""), `start_line + end_line`, "numbers.risor")

	_, err := s.Summarize(context.Background(), testNode())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want string")
}

func TestScriptSummarizer_RejectsEmpty(t *testing.T) {
	t.Parallel()
	s := NewScriptSummarizer(quietRuntime(""), `"   "`, "blank.risor")

	_, err := s.Summarize(context.Background(), testNode())
	require.Error(t, err)
}

func TestLoadScriptSummarizer(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "describe.risor")
	require.NoError(t, os.WriteFile(path, []byte(`"Renders " + metadata["parent_class"]`), 0o644))

	s, err := LoadScriptSummarizer(path, WithRuntimeLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	got, err := s.Summarize(context.Background(), testNode())
	require.NoError(t, err)
	assert.Equal(t, "Renders Widget", got)

	_, err = LoadScriptSummarizer(filepath.Join(dir, "missing.risor"))
	require.Error(t, err)
}

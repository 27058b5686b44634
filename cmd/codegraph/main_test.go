package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codegraph"
	"github.com/jward/codegraph/internal/config"
)

const helperSrc = `package main

func helper() int {
	return 1
}
`

const mainSrc = `package main

func main() {
	helper()
}
`

// writeFiles creates files (relative path → content) under a fresh temp dir
// and returns its symlink-resolved path.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// indexed builds the helper/main project and returns the graph path.
func indexed(t *testing.T, name string) string {
	t.Helper()
	root := writeFiles(t, map[string]string{"a.go": helperSrc, "b.go": mainSrc})
	out := filepath.Join(t.TempDir(), name)
	format := "json"
	if strings.HasSuffix(name, ".db") {
		format = "sqlite"
	}
	_, _, err := run(t, root, out, "2", format, "--no-git")
	require.NoError(t, err)
	return out
}

func decodeResult(t *testing.T, stdout string) (CLIResult, []CLINode) {
	t.Helper()
	var envelope struct {
		CLIResult
		Results json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &envelope))
	var nodes []CLINode
	if len(envelope.Results) > 0 && envelope.Results[0] == '[' {
		require.NoError(t, json.Unmarshal(envelope.Results, &nodes))
	}
	return envelope.CLIResult, nodes
}

// =============================================================================
// Index
// =============================================================================

func TestIndex_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()
	stdout, _, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "codegraph <root_path> [output_path] [thread_count] [format]")
}

func TestIndex_WritesJSON(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{"a.go": helperSrc, "b.go": mainSrc})
	out := filepath.Join(t.TempDir(), "graph.json")

	_, stderr, err := run(t, root, out, "--no-git")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Indexed "+root)
	assert.Contains(t, stderr, "Graph: "+out)

	g, err := codegraph.LoadGraphFile(context.Background(), out)
	require.NoError(t, err)
	assert.Len(t, g.FindByName("helper"), 1)
}

func TestIndex_InvalidThreadCountAndFormatWarn(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{"a.go": helperSrc})
	out := filepath.Join(t.TempDir(), "graph.out")

	_, stderr, err := run(t, root, out, "many", "xml", "--no-git")
	require.NoError(t, err)
	assert.Contains(t, stderr, "invalid thread count")
	assert.Contains(t, stderr, "unsupported format")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "falls back to JSON")
}

func TestIndex_SQLite(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.db")

	g, err := codegraph.LoadGraphFile(context.Background(), out)
	require.NoError(t, err)
	assert.Len(t, g.FindByName("main"), 3, "two modules and one function")
}

func TestIndex_MissingRoot(t *testing.T) {
	t.Parallel()
	_, _, err := run(t, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory not found")
}

func TestIndex_ConfigFileExcludes(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{
		"a.go":          helperSrc,
		"gen/b.go":      mainSrc,
		config.FileName: "exclude: [\"gen/**\"]\nno_git: true\n",
	})
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := run(t, root, out)
	require.NoError(t, err)
	g, err := codegraph.LoadGraphFile(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.go")}, g.Files())
}

func TestIndex_BadConfigFails(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{config.FileName: "threads: 3\n"})
	_, _, err := run(t, root, filepath.Join(t.TempDir(), "g.json"))
	require.Error(t, err)
}

func TestIndex_SummaryScript(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{
		"a.go":          helperSrc,
		"summary.risor": "kind + \": \" + name",
	})
	out := filepath.Join(t.TempDir(), "graph.json")

	_, _, err := run(t, root, out, "--no-git", "--summary-script", filepath.Join(root, "summary.risor"))
	require.NoError(t, err)

	g, err := codegraph.LoadGraphFile(context.Background(), out)
	require.NoError(t, err)
	helper := g.FindByName("helper")
	require.Len(t, helper, 1)
	require.NotNil(t, helper[0].Summary)
	assert.Equal(t, "Function: helper", *helper[0].Summary)
}

func TestApplyPositional(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	applyPositional(cfg, []string{"out.json", "4", "json"}, logger)
	assert.Equal(t, "out.json", cfg.Output)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, config.FormatJSON, cfg.Format)

	cfg = config.Default()
	applyPositional(cfg, []string{"", "0", "sqlite"}, logger)
	assert.Equal(t, defaultSQLiteOutput, cfg.Output)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, config.FormatSQLite, cfg.Format)

	cfg = config.Default()
	cfg.Workers = 3
	applyPositional(cfg, []string{"", "", ""}, logger)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
	assert.Equal(t, 3, cfg.Workers)
}

// =============================================================================
// Query
// =============================================================================

func TestQuery_Callers(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"graph.json", "graph.db"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			out := indexed(t, name)

			stdout, _, err := run(t, "query", "callers", out, "helper")
			require.NoError(t, err)
			result, nodes := decodeResult(t, stdout)
			assert.Equal(t, "callers", result.Command)
			require.Len(t, nodes, 1)
			assert.Equal(t, "main", nodes[0].Name)
			assert.Equal(t, "Function", nodes[0].Kind)
		})
	}
}

func TestQuery_Callees(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "callees", out, "main")
	require.NoError(t, err)
	_, nodes := decodeResult(t, stdout)
	require.Len(t, nodes, 1)
	assert.Equal(t, "helper", nodes[0].Name)
}

func TestQuery_RelatedDepth(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "related", out, "helper", "--depth", "0")
	require.NoError(t, err)
	_, nodes := decodeResult(t, stdout)
	require.Len(t, nodes, 1)
	assert.Equal(t, "helper", nodes[0].Name)

	stdout, _, err = run(t, "query", "related", out, "helper", "--depth", "1")
	require.NoError(t, err)
	_, nodes = decodeResult(t, stdout)
	assert.Len(t, nodes, 2)
}

func TestQuery_FindByKind(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "find", out, "--kind", "Module")
	require.NoError(t, err)
	_, nodes := decodeResult(t, stdout)
	assert.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Equal(t, "Module", n.Kind)
	}
}

func TestQuery_Refs(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "refs", out, "helper", "--format", "text")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 2, "definition in a.go and call in b.go")
	assert.True(t, strings.HasSuffix(lines[0], "a.go:3"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "b.go:4"), lines[1])
}

func TestQuery_StatsText(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "stats", out, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Files: 2")
	assert.Contains(t, stdout, "Nodes: 4")
	assert.Contains(t, stdout, "Calls: 1")
}

func TestQuery_NodesText(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	stdout, _, err := run(t, "query", "callers", out, "helper", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "main")
	assert.Contains(t, stdout, "Function")
}

func TestQuery_Errors(t *testing.T) {
	t.Parallel()
	out := indexed(t, "graph.json")

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		a := newApp(&stdout, &stderr)
		cmd := a.rootCmd()
		cmd.SetArgs([]string{"query", "callers", out, "nobody"})
		require.Error(t, cmd.Execute())
		assert.True(t, a.errorHandled)

		result, _ := decodeResult(t, stdout.String())
		assert.Contains(t, result.Error, "nobody")
	})

	t.Run("missing graph", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, "query", "stats", filepath.Join(t.TempDir(), "none.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "graph not found")
	})

	t.Run("bad format", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, "query", "stats", out, "--format", "yaml")
		require.Error(t, err)
	})
}

// =============================================================================
// Watch
// =============================================================================

func TestWatch_RebuildsOnChange(t *testing.T) {
	t.Parallel()
	root := writeFiles(t, map[string]string{"a.go": helperSrc})
	out := filepath.Join(t.TempDir(), "graph.json")

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	cmd := a.rootCmd()
	cmd.SetArgs([]string{"watch", root, out, "--no-git", "--debounce", "50ms", "--log-level", "error"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	hasNode := func(name string) bool {
		g, err := codegraph.LoadGraphFile(context.Background(), out)
		return err == nil && len(g.FindByName(name)) > 0
	}
	require.Eventually(t, func() bool { return hasNode("helper") }, 5*time.Second, 20*time.Millisecond)

	// Give the watcher time to register the tree before changing it.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte(mainSrc), 0o644))
	require.Eventually(t, func() bool { return hasNode("main") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

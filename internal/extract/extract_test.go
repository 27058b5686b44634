package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codegraph/internal/graph"
)

func newExtractor(t *testing.T, lang string) *TreeSitterExtractor {
	t.Helper()
	spec, ok := Spec(lang)
	require.True(t, ok, "no spec for %s", lang)
	e, err := NewTreeSitterExtractor(spec, nil)
	require.NoError(t, err)
	return e
}

func byName(nodes []*graph.Node) map[string]*graph.Node {
	out := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		out[n.Name] = n
	}
	return out
}

// =============================================================================
// Go
// =============================================================================

const goSource = `package shapes

import (
	"fmt"
	"strings"
)

type Shape interface {
	Area() float64
}

type Circle struct {
	R float64
}

type Names []string

func (c *Circle) Area() float64 {
	return 3.14 * c.R * c.R
}

func describe(s Shape) string {
	return fmt.Sprintf("%v", s.Area())
}

func helper() {
	describe(&Circle{R: 1})
	strings.ToUpper("x")
}
`

func TestGoEntities(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "go")

	nodes, err := e.ExtractEntities([]byte(goSource), "/src/shapes.go")
	require.NoError(t, err)
	got := byName(nodes)

	tests := []struct {
		name  string
		kind  graph.NodeKind
		lines graph.LineRange
	}{
		{"shapes", graph.KindModule, graph.LineRange{Start: 1, End: 1}},
		{"Shape", graph.KindInterface, graph.LineRange{Start: 8, End: 10}},
		{"Circle", graph.KindClass, graph.LineRange{Start: 12, End: 14}},
		{"Names", graph.KindTypeDefinition, graph.LineRange{Start: 16, End: 16}},
		{"Area", graph.KindMethod, graph.LineRange{Start: 18, End: 20}},
		{"describe", graph.KindFunction, graph.LineRange{Start: 22, End: 24}},
		{"helper", graph.KindFunction, graph.LineRange{Start: 26, End: 29}},
	}
	require.Len(t, nodes, len(tests))
	for _, tt := range tests {
		n, ok := got[tt.name]
		require.True(t, ok, "missing %s", tt.name)
		assert.Equal(t, tt.kind, n.Kind, tt.name)
		assert.Equal(t, tt.lines, n.LineRange, tt.name)
		assert.Equal(t, "/src/shapes.go", n.FilePath)
		assert.NotEmpty(t, n.ID)
		lang, _ := n.Meta(graph.MetaLanguage)
		assert.Equal(t, "go", lang)
	}

	parent, ok := got["Area"].Meta(graph.MetaParentClass)
	require.True(t, ok)
	assert.Equal(t, "Circle", parent)
	assert.Contains(t, got["helper"].Content, `strings.ToUpper("x")`)
}

func TestGoEntities_FreshIDs(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "go")

	first, err := e.ExtractEntities([]byte(goSource), "/a.go")
	require.NoError(t, err)
	second, err := e.ExtractEntities([]byte(goSource), "/a.go")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, n := range append(first, second...) {
		assert.False(t, seen[n.ID], "id reused: %s", n.ID)
		seen[n.ID] = true
	}
}

func TestGoCalledNames(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "go")
	src := []byte(goSource)

	names, err := e.ExtractCalledNames(src, graph.LineRange{Start: 26, End: 29}, "helper")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"describe", "ToUpper"}, names)

	names, err = e.ExtractCalledNames(src, graph.LineRange{Start: 22, End: 24}, "describe")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Sprintf", "Area"}, names)

	// Second query on the same content is served from the cache.
	assert.Equal(t, 1, e.sites.Len())
}

func TestGoReferencedRanges(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "go")

	refs, err := e.ExtractReferencedRanges([]byte(goSource), graph.LineRange{Start: 26, End: 29}, "describe")
	require.NoError(t, err)
	assert.Equal(t, []graph.LineRange{{Start: 27, End: 27}}, refs)

	refs, err = e.ExtractReferencedRanges([]byte(goSource), graph.LineRange{Start: 1, End: 5}, "describe")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestGoImportedNames(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "go")

	names, err := e.ExtractImportedNames([]byte(goSource))
	require.NoError(t, err)
	assert.Equal(t, []string{"fmt", "strings"}, names)
}

// =============================================================================
// Other languages
// =============================================================================

func TestPythonEntities(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "python")
	src := []byte(`import os.path
from .models import Widget

class Widget:
    def render(self):
        return helper()

def helper():
    def inner():
        pass
    return inner()
`)

	nodes, err := e.ExtractEntities(src, "/app/view.py")
	require.NoError(t, err)
	got := byName(nodes)
	require.Len(t, nodes, 4)

	assert.Equal(t, graph.KindClass, got["Widget"].Kind)
	assert.Equal(t, graph.LineRange{Start: 4, End: 6}, got["Widget"].LineRange)

	assert.Equal(t, graph.KindMethod, got["render"].Kind)
	parent, _ := got["render"].Meta(graph.MetaParentClass)
	assert.Equal(t, "Widget", parent)

	assert.Equal(t, graph.KindFunction, got["helper"].Kind)
	assert.Equal(t, graph.KindFunction, got["inner"].Kind)
	_, hasParent := got["inner"].Meta(graph.MetaParentClass)
	assert.False(t, hasParent)

	calls, err := e.ExtractCalledNames(src, got["render"].LineRange, "render")
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, calls)

	imports, err := e.ExtractImportedNames(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"path", "models"}, imports)
}

func TestRustEntities(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "rust")
	src := []byte(`use std::collections::HashMap;

struct Counter {
    n: u32,
}

trait Tick {
    fn tick(&mut self);
}

impl Tick for Counter {
    fn tick(&mut self) {
        self.n += 1;
    }
}

fn main() {
    let mut c = Counter { n: 0 };
    c.tick();
}
`)

	nodes, err := e.ExtractEntities(src, "/src/main.rs")
	require.NoError(t, err)
	got := byName(nodes)

	assert.Equal(t, graph.KindClass, got["Counter"].Kind)
	assert.Equal(t, graph.KindInterface, got["Tick"].Kind)
	assert.Equal(t, graph.KindFunction, got["main"].Kind)
	require.Contains(t, got, "tick")
	assert.Equal(t, graph.KindMethod, got["tick"].Kind)
	parent, _ := got["tick"].Meta(graph.MetaParentClass)
	assert.Equal(t, "Counter", parent)

	calls, err := e.ExtractCalledNames(src, got["main"].LineRange, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"tick"}, calls)

	imports, err := e.ExtractImportedNames(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"HashMap"}, imports)
}

func TestJavaScriptEntities(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, "javascript")
	src := []byte(`import { render } from "./view.js";
const util = require("lodash");

class Widget {
  draw() {
    return render(this);
  }
}

const build = () => new Widget();
function main() { build(); }
`)

	nodes, err := e.ExtractEntities(src, "/web/app.js")
	require.NoError(t, err)
	got := byName(nodes)

	assert.Equal(t, graph.KindClass, got["Widget"].Kind)
	assert.Equal(t, graph.KindMethod, got["draw"].Kind)
	parent, _ := got["draw"].Meta(graph.MetaParentClass)
	assert.Equal(t, "Widget", parent)
	assert.Equal(t, graph.KindFunction, got["build"].Kind)
	assert.Equal(t, graph.KindFunction, got["main"].Kind)

	calls, err := e.ExtractCalledNames(src, got["main"].LineRange, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, calls)

	imports, err := e.ExtractImportedNames(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"view", "lodash"}, imports)
}

// =============================================================================
// Query failures
// =============================================================================

func TestMalformedQueryYieldsEmptyResult(t *testing.T) {
	t.Parallel()
	spec := LanguageSpec{
		Name: "go",
		Entities: []EntityRule{
			{Kind: graph.KindFunction, Query: `(no_such_node) @node`},
			{Kind: graph.KindFunction, Query: `(function_declaration name: (identifier) @name) @node`},
		},
		Calls:   `((( broken`,
		Imports: `(import_spec path: (_) @path)`,
	}
	e, err := NewTreeSitterExtractor(spec, nil)
	require.NoError(t, err)
	src := []byte(goSource)

	nodes, err := e.ExtractEntities(src, "/x.go")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	calls, err := e.ExtractCalledNames(src, graph.LineRange{Start: 1, End: 29}, "")
	require.NoError(t, err)
	assert.Empty(t, calls)

	refs, err := e.ExtractReferencedRanges(src, graph.LineRange{Start: 1, End: 29}, "describe")
	require.NoError(t, err)
	assert.Empty(t, refs)

	imports, err := e.ExtractImportedNames(src)
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

func TestNewTreeSitterExtractor_UnknownGrammar(t *testing.T) {
	t.Parallel()
	_, err := NewTreeSitterExtractor(LanguageSpec{Name: "cobol"}, nil)
	require.Error(t, err)
}

// =============================================================================
// Registry & names
// =============================================================================

func TestRegistry_ForFile(t *testing.T) {
	t.Parallel()
	r := DefaultRegistry(nil, "go", "python", "klingon")

	assert.Equal(t, []string{"go", "python"}, r.Languages())

	e, lang, ok := r.ForFile("/src/main.go")
	require.True(t, ok)
	assert.Equal(t, "go", lang)
	assert.NotNil(t, e)

	_, lang, ok = r.ForFile("/src/lib.rs")
	assert.False(t, ok)
	assert.Equal(t, "rust", lang)

	_, _, ok = r.ForFile("/README.md")
	assert.False(t, ok)
}

func TestDefaultRegistry_AllBuiltins(t *testing.T) {
	t.Parallel()
	r := DefaultRegistry(nil)
	assert.Equal(t, BuiltinLanguages(), r.Languages())
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		lang string
		ok   bool
	}{
		{"a.go", "go", true},
		{"a.PY", "python", true},
		{"a.tsx", "tsx", true},
		{"a.ts", "typescript", true},
		{"a.hpp", "cpp", true},
		{"a.h", "c", true},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.lang, lang, tt.path)
	}
}

func TestModuleName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
	}{
		{`"fmt"`, "fmt"},
		{`"github.com/acme/util"`, "util"},
		{`'./helpers.js'`, "helpers"},
		{`<stdio.h>`, "stdio"},
		{`"net/http.h"`, "http"},
		{`os.path`, "path"},
		{`.models`, "models"},
		{`std::collections::HashMap`, "HashMap"},
		{`crate::net::{Conn, Addr}`, "net"},
		{`super::*`, "super"},
		{`java.util.*`, "util"},
		{`com.acme.Widget`, "Widget"},
		{`App\Models\User`, "User"},
		{`a::b as c`, "b"},
		{`.`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModuleName(tt.raw), tt.raw)
	}
}

func TestCleanOwner(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "List", cleanOwner("*List[T]"))
	assert.Equal(t, "Foo", cleanOwner("Foo<T>"))
	assert.Equal(t, "Bar", cleanOwner("crate::Bar"))
	assert.Equal(t, "Circle", cleanOwner("(*Circle)"))
}

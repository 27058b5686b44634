package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codegraph/internal/graph"
)

const siteCacheSize = 256

// EntityRule turns the matches of one query into nodes of one kind. The
// query captures the unit as @node and its name as @name; an optional
// @owner capture names the enclosing type.
type EntityRule struct {
	Kind  graph.NodeKind
	Query string
	// Owned promotes a Function to a Method when an enclosing type is found.
	Owned bool
}

// LanguageSpec describes one language to the tree-sitter extractor.
type LanguageSpec struct {
	Name     string
	Entities []EntityRule

	// Calls captures callee names as @callee.
	Calls string
	// References captures identifier occurrences as @ref.
	References string
	// Imports captures import paths as @path.
	Imports string

	// Owner finds the enclosing type name of a unit when the rule has no
	// @owner capture.
	Owner func(n *sitter.Node, src []byte) string
	// ImportName normalizes an import path; ModuleName when nil.
	ImportName func(raw string) string
}

type compiledRule struct {
	rule  EntityRule
	query *sitter.Query
}

type siteKind uint8

const (
	callSites siteKind = iota
	refSites
)

type siteKey struct {
	sum  [sha256.Size]byte
	kind siteKind
}

type site struct {
	name  string
	lines graph.LineRange
}

// TreeSitterExtractor implements Extractor for any language described by a
// LanguageSpec. Queries are compiled once; a query that fails to compile is
// logged and contributes nothing.
type TreeSitterExtractor struct {
	spec    LanguageSpec
	grammar *sitter.Language
	logger  *slog.Logger

	once     sync.Once
	entities []compiledRule
	calls    *sitter.Query
	refs     *sitter.Query
	imports  *sitter.Query

	sites *lru.Cache[siteKey, []site]
}

// NewTreeSitterExtractor creates an extractor for spec.
func NewTreeSitterExtractor(spec LanguageSpec, logger *slog.Logger) (*TreeSitterExtractor, error) {
	grammar, ok := GrammarForLanguage(spec.Name)
	if !ok {
		return nil, fmt.Errorf("extract: no grammar for language %q", spec.Name)
	}
	cache, err := lru.New[siteKey, []site](siteCacheSize)
	if err != nil {
		return nil, fmt.Errorf("extract: site cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterExtractor{
		spec:    spec,
		grammar: grammar,
		logger:  logger,
		sites:   cache,
	}, nil
}

func (e *TreeSitterExtractor) compile() {
	e.once.Do(func() {
		for _, r := range e.spec.Entities {
			if q := e.newQuery(r.Query); q != nil {
				e.entities = append(e.entities, compiledRule{rule: r, query: q})
			}
		}
		e.calls = e.newQuery(e.spec.Calls)
		e.refs = e.newQuery(e.spec.References)
		e.imports = e.newQuery(e.spec.Imports)
	})
}

func (e *TreeSitterExtractor) newQuery(pattern string) *sitter.Query {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	q, err := sitter.NewQuery([]byte(pattern), e.grammar)
	if err != nil {
		e.logger.Warn("invalid query", "language", e.spec.Name, "error", err)
		return nil
	}
	return q
}

func (e *TreeSitterExtractor) parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("extract: parse %s: %w", e.spec.Name, err)
	}
	return tree, nil
}

// eachMatch runs q over root and hands each predicate-filtered match to fn
// as a capture-name → node map. The first capture of a name wins.
func eachMatch(q *sitter.Query, root *sitter.Node, src []byte, fn func(map[string]*sitter.Node)) {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, src)
		if len(match.Captures) == 0 {
			continue
		}
		caps := make(map[string]*sitter.Node, len(match.Captures))
		for _, c := range match.Captures {
			name := q.CaptureNameForId(c.Index)
			if _, seen := caps[name]; !seen {
				caps[name] = c.Node
			}
		}
		fn(caps)
	}
}

func lineRangeOf(n *sitter.Node) graph.LineRange {
	return graph.LineRange{
		Start: int(n.StartPoint().Row) + 1,
		End:   int(n.EndPoint().Row) + 1,
	}
}

type unitKey struct {
	start, end uint32
	kind       graph.NodeKind
}

// ExtractEntities implements Extractor.
func (e *TreeSitterExtractor) ExtractEntities(content []byte, path string) ([]*graph.Node, error) {
	e.compile()
	tree, err := e.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	var nodes []*graph.Node
	seen := make(map[unitKey]bool)
	for _, cr := range e.entities {
		eachMatch(cr.query, root, content, func(caps map[string]*sitter.Node) {
			unit, nameNode := caps["node"], caps["name"]
			if unit == nil || nameNode == nil {
				return
			}
			name := strings.TrimSpace(nameNode.Content(content))
			if name == "" {
				return
			}

			kind := cr.rule.Kind
			var owner string
			if o := caps["owner"]; o != nil {
				owner = cleanOwner(o.Content(content))
			} else if e.spec.Owner != nil && (kind == graph.KindMethod || cr.rule.Owned) {
				owner = e.spec.Owner(unit, content)
			}
			if cr.rule.Owned && owner != "" {
				kind = graph.KindMethod
			}

			key := unitKey{start: unit.StartByte(), end: unit.EndByte(), kind: kind}
			if seen[key] {
				return
			}
			seen[key] = true

			n := graph.NewNode(uuid.NewString(), kind, name, path, lineRangeOf(unit), unit.Content(content))
			n.SetMeta(graph.MetaLanguage, e.spec.Name)
			if kind == graph.KindMethod && owner != "" {
				n.SetMeta(graph.MetaParentClass, owner)
			}
			nodes = append(nodes, n)
		})
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].LineRange.Start < nodes[j].LineRange.Start
	})
	return nodes, nil
}

// sitesFor returns every call or reference site in content. Results are
// cached by content hash since inference asks once per function.
func (e *TreeSitterExtractor) sitesFor(content []byte, kind siteKind) ([]site, error) {
	e.compile()
	key := siteKey{sum: sha256.Sum256(content), kind: kind}
	if cached, ok := e.sites.Get(key); ok {
		return cached, nil
	}

	q, capture := e.calls, "callee"
	if kind == refSites {
		q, capture = e.refs, "ref"
	}
	if q == nil {
		return nil, nil
	}

	tree, err := e.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []site
	eachMatch(q, tree.RootNode(), content, func(caps map[string]*sitter.Node) {
		n := caps[capture]
		if n == nil {
			return
		}
		name := n.Content(content)
		if name == "" {
			return
		}
		out = append(out, site{name: name, lines: lineRangeOf(n)})
	})
	e.sites.Add(key, out)
	return out, nil
}

// ExtractCalledNames implements Extractor. owner is not needed to find
// call sites by line range.
func (e *TreeSitterExtractor) ExtractCalledNames(content []byte, lines graph.LineRange, owner string) ([]string, error) {
	sites, err := e.sitesFor(content, callSites)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range sites {
		if lines.Contains(s.lines.Start) {
			names = append(names, s.name)
		}
	}
	return names, nil
}

// ExtractReferencedRanges implements Extractor.
func (e *TreeSitterExtractor) ExtractReferencedRanges(content []byte, lines graph.LineRange, identifier string) ([]graph.LineRange, error) {
	sites, err := e.sitesFor(content, refSites)
	if err != nil {
		return nil, err
	}
	var out []graph.LineRange
	for _, s := range sites {
		if s.name == identifier && lines.Contains(s.lines.Start) {
			out = append(out, s.lines)
		}
	}
	return out, nil
}

// ExtractImportedNames implements Extractor. Names are deduplicated in
// first-seen order.
func (e *TreeSitterExtractor) ExtractImportedNames(content []byte) ([]string, error) {
	e.compile()
	if e.imports == nil {
		return nil, nil
	}
	tree, err := e.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	normalize := e.spec.ImportName
	if normalize == nil {
		normalize = ModuleName
	}

	var names []string
	seen := make(map[string]bool)
	eachMatch(e.imports, tree.RootNode(), content, func(caps map[string]*sitter.Node) {
		p := caps["path"]
		if p == nil {
			return
		}
		name := normalize(p.Content(content))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	})
	return names, nil
}

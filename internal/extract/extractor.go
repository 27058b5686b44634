// Package extract turns source files into graph nodes and answers the
// per-file questions relationship inference asks: which names a function
// calls, where an identifier is referenced, and which modules a file imports.
package extract

import (
	"log/slog"
	"sort"

	"github.com/jward/codegraph/internal/graph"
)

// Extractor is the per-language extraction capability. Implementations
// must be safe for concurrent use; ExtractEntities is called from several
// workers at once.
type Extractor interface {
	// ExtractEntities returns the code units found in content. Each node
	// gets a fresh ID and its own copy of the source text.
	ExtractEntities(content []byte, path string) ([]*graph.Node, error)

	// ExtractCalledNames returns the callee names of every call site that
	// starts within lines. owner is the name of the enclosing unit and may
	// be ignored.
	ExtractCalledNames(content []byte, lines graph.LineRange, owner string) ([]string, error)

	// ExtractReferencedRanges returns the span of every occurrence of
	// identifier that starts within lines.
	ExtractReferencedRanges(content []byte, lines graph.LineRange, identifier string) ([]graph.LineRange, error)

	// ExtractImportedNames returns the normalized module names a file
	// imports.
	ExtractImportedNames(content []byte) ([]string, error)
}

// Registry maps language tags to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register binds an extractor to a language tag, replacing any previous one.
func (r *Registry) Register(lang string, e Extractor) {
	r.extractors[lang] = e
}

// ForFile returns the extractor and language tag for a file path.
// Unknown extensions and unregistered languages report false.
func (r *Registry) ForFile(path string) (Extractor, string, bool) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, "", false
	}
	e, ok := r.extractors[lang]
	if !ok {
		return nil, lang, false
	}
	return e, lang, true
}

// Languages returns the registered language tags, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.extractors))
	for l := range r.extractors {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// DefaultRegistry returns a registry with a tree-sitter extractor for each
// requested language tag, or for every built-in language when none are
// given. Unknown tags are logged and skipped.
func DefaultRegistry(logger *slog.Logger, langs ...string) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if len(langs) == 0 {
		langs = BuiltinLanguages()
	}
	r := NewRegistry()
	for _, lang := range langs {
		spec, ok := builtinSpecs[lang]
		if !ok {
			logger.Warn("no extractor for language", "language", lang)
			continue
		}
		e, err := NewTreeSitterExtractor(spec, logger)
		if err != nil {
			logger.Warn("extractor unavailable", "language", lang, "error", err)
			continue
		}
		r.Register(lang, e)
	}
	return r
}

package codegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jward/codegraph/internal/analyze"
	"github.com/jward/codegraph/internal/discover"
	"github.com/jward/codegraph/internal/extract"
	"github.com/jward/codegraph/internal/graph"
)

// ErrAlreadyAnalyzed is returned by Analyze when the current graph has
// already been analyzed. Call Reset and index again first.
var ErrAlreadyAnalyzed = errors.New("codegraph: graph already analyzed")

// Engine orchestrates the codegraph pipeline: file discovery, parallel
// extraction into a Graph, relationship inference and enhancement.
type Engine struct {
	graph    *graph.Graph
	registry *extract.Registry
	sources  *analyze.SourceCache
	analyzed bool

	workers    int
	languages  []string
	exclude    []string
	noGit      bool
	summarizer analyze.Summarizer
	resolver   func(*graph.Graph) analyze.Resolver
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of extraction goroutines. n <= 0 means
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the logger used by the Engine and every pass it runs.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = append([]string(nil), languages...)
	}
}

// WithExclude adds glob patterns for files IndexDirectory leaves out.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithNoGit makes IndexDirectory walk the filesystem even inside a git
// work tree.
func WithNoGit(noGit bool) Option {
	return func(e *Engine) {
		e.noGit = noGit
	}
}

// WithSummarizer replaces the template summarizer.
func WithSummarizer(s analyze.Summarizer) Option {
	return func(e *Engine) {
		e.summarizer = s
	}
}

// WithResolver replaces the name-based call resolver used by Analyze.
func WithResolver(newResolver func(*graph.Graph) analyze.Resolver) Option {
	return func(e *Engine) {
		e.resolver = newResolver
	}
}

// WithRegistry replaces the built-in tree-sitter extractors.
func WithRegistry(r *extract.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// New creates an Engine with an empty graph.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = extract.DefaultRegistry(e.logger, e.languages...)
	}
	if err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset discards the current graph and cached file contents.
func (e *Engine) Reset() error {
	sources, err := analyze.NewSourceCache(analyze.DefaultSourceCacheSize)
	if err != nil {
		return fmt.Errorf("codegraph: %w", err)
	}
	e.graph = graph.New()
	e.sources = sources
	e.analyzed = false
	return nil
}

// Graph returns the graph built so far.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Registry returns the extractor registry.
func (e *Engine) Registry() *extract.Registry {
	return e.registry
}

// Extensions returns the file extensions the Engine indexes.
func (e *Engine) Extensions() []string {
	if len(e.languages) > 0 {
		return extract.ExtensionsFor(e.languages)
	}
	return extract.SupportedExtensions()
}

// IndexDirectory discovers the supported files under root and indexes them.
// If root is inside a git repository, git ls-files decides which files are
// visible; otherwise the tree is walked honoring the root .gitignore.
func (e *Engine) IndexDirectory(ctx context.Context, root string) (IndexStats, error) {
	paths, err := discover.Discover(ctx, discover.Options{
		Root:       root,
		Extensions: e.Extensions(),
		Exclude:    e.exclude,
		NoGit:      e.noGit,
		Logger:     e.logger,
	})
	if err != nil {
		return IndexStats{}, fmt.Errorf("codegraph: discover: %w", err)
	}
	e.logger.Debug("files discovered", "path", root, "files", len(paths))
	return e.IndexFiles(ctx, paths)
}

// Analyze runs the post-extraction passes in order: relationship
// inference, method name qualification, then summaries. It must only run
// after indexing has returned, and at most once per graph; a second call
// returns ErrAlreadyAnalyzed until Reset.
func (e *Engine) Analyze(ctx context.Context) (AnalyzeStats, error) {
	if e.analyzed {
		return AnalyzeStats{}, ErrAlreadyAnalyzed
	}
	e.analyzed = true
	opts := []analyze.Option{
		analyze.WithLogger(e.logger),
		analyze.WithSources(e.sources),
	}
	if e.resolver != nil {
		opts = append(opts, analyze.WithResolver(e.resolver))
	}

	infer, err := analyze.Infer(ctx, e.graph, e.registry, opts...)
	if err != nil {
		return AnalyzeStats{}, fmt.Errorf("codegraph: infer relationships: %w", err)
	}
	qualified := analyze.QualifyMethodNames(e.graph)
	summaries, err := analyze.GenerateSummaries(ctx, e.graph, e.summarizer, opts...)
	if err != nil {
		return AnalyzeStats{}, fmt.Errorf("codegraph: generate summaries: %w", err)
	}

	total := 0
	for _, n := range summaries {
		total += n
	}
	return AnalyzeStats{
		Relationships: infer.Added,
		Qualified:     qualified,
		Summaries:     total,
	}, nil
}

// Build indexes root and analyzes the result.
func (e *Engine) Build(ctx context.Context, root string) (BuildStats, error) {
	start := time.Now()
	index, err := e.IndexDirectory(ctx, root)
	if err != nil {
		return BuildStats{}, err
	}
	an, err := e.Analyze(ctx)
	if err != nil {
		return BuildStats{}, err
	}
	stats := BuildStats{
		Index:             index,
		Analyze:           an,
		NodeCount:         e.graph.NodeCount(),
		RelationshipCount: e.graph.RelationshipCount(),
		Duration:          time.Since(start),
	}
	e.logger.Info("graph built",
		"path", root,
		"files", index.Indexed,
		"nodes", stats.NodeCount,
		"relationships", stats.RelationshipCount,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	return stats, nil
}

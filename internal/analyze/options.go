package analyze

import (
	"log/slog"

	"github.com/jward/codegraph/internal/graph"
)

type config struct {
	logger      *slog.Logger
	newResolver func(*graph.Graph) Resolver
	sources     Sources
}

// Option configures Infer and GenerateSummaries.
type Option func(*config)

// WithLogger sets the logger for warnings and progress.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResolver replaces the default name-based call resolver. The factory
// is called once per Infer run, after extraction has completed.
func WithResolver(newResolver func(*graph.Graph) Resolver) Option {
	return func(c *config) {
		if newResolver != nil {
			c.newResolver = newResolver
		}
	}
}

// WithSources sets where Infer reads file contents from. Defaults to a
// SourceCache backed by the filesystem.
func WithSources(s Sources) Option {
	return func(c *config) {
		if s != nil {
			c.sources = s
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: slog.Default(),
		newResolver: func(g *graph.Graph) Resolver {
			return NewNameResolver(g)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

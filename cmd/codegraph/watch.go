package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jward/codegraph"
	"github.com/jward/codegraph/internal/config"
	"github.com/jward/codegraph/internal/discover"
	"github.com/jward/codegraph/internal/watch"
)

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <root_path> [output_path] [format]",
		Short: "Rebuild and re-export the graph whenever source files change",
		Args:  cobra.RangeArgs(1, 3),
		RunE:  a.runWatch,
	}
	cmd.Flags().DurationVar(&a.debounce, "debounce", 0, "quiet period before a rebuild (default from config, 500ms)")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveRootDir(args[0])
	if err != nil {
		return err
	}
	cfg, logger, err := a.setup(cmd, rootDir)
	if err != nil {
		return err
	}
	// Watch takes no thread count; an empty slot keeps the configured value.
	positional := make([]string, 3)
	if len(args) > 1 {
		positional[0] = args[1]
	}
	if len(args) > 2 {
		positional[2] = args[2]
	}
	applyPositional(cfg, positional, logger)
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce = a.debounce
	}
	output, err := filepath.Abs(cfg.Output)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	cfg.Output = output

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	if err := rebuild(ctx, engine, cfg, rootDir, logger); err != nil {
		return err
	}

	matcher, err := newChangeMatcher(engine, cfg, rootDir)
	if err != nil {
		return err
	}
	changes := make(chan struct{}, 1)
	w, err := watch.New(watch.Config{
		Debounce: cfg.Watch.Debounce,
		Match:    matcher,
		Logger:   logger,
		OnChange: func(_ context.Context, paths []string) {
			logger.Debug("change detected", "files", len(paths))
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.AddTree(rootDir); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "Watching %s (Ctrl-C to stop)\n", rootDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-changes:
				if err := rebuild(gctx, engine, cfg, rootDir, logger); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					logger.Error("rebuild failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// rebuild indexes rootDir from scratch and exports the result.
func rebuild(ctx context.Context, engine *codegraph.Engine, cfg *config.Config, rootDir string, logger *slog.Logger) error {
	if err := engine.Reset(); err != nil {
		return err
	}
	stats, err := engine.Build(ctx, rootDir)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	if err := codegraph.Export(ctx, engine.Graph(), rootDir, cfg.Output, cfg.Format); err != nil {
		return err
	}
	logger.Info("graph exported",
		"path", cfg.Output,
		"nodes", stats.NodeCount,
		"relationships", stats.RelationshipCount,
	)
	return nil
}

// newChangeMatcher accepts files the engine would index, leaving out the
// export itself and excluded paths.
func newChangeMatcher(engine *codegraph.Engine, cfg *config.Config, rootDir string) (func(string) bool, error) {
	exts := make(map[string]bool)
	for _, ext := range engine.Extensions() {
		exts[ext] = true
	}
	excluded, err := discover.NewMatcher(rootDir, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	return func(path string) bool {
		if path == cfg.Output {
			return false
		}
		if !exts[filepath.Ext(path)] {
			return false
		}
		return !excluded(path)
	}, nil
}

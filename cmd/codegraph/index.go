package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/codegraph"
	"github.com/jward/codegraph/internal/config"
	codegraphrt "github.com/jward/codegraph/internal/runtime"
)

// defaultSQLiteOutput replaces the JSON default when sqlite is selected and
// no output path was given.
const defaultSQLiteOutput = "code_graph.db"

func (a *app) runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	rootDir, err := resolveRootDir(args[0])
	if err != nil {
		return err
	}

	cfg, logger, err := a.setup(cmd, rootDir)
	if err != nil {
		return err
	}
	applyPositional(cfg, args[1:], logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	stats, err := engine.Build(ctx, rootDir)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	if err := codegraph.Export(ctx, engine.Graph(), rootDir, cfg.Output, cfg.Format); err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "Indexed %s in %s (%d files, %d skipped, %d nodes, %d relationships)\n",
		rootDir,
		time.Since(start).Round(time.Millisecond),
		stats.Index.Indexed,
		stats.Index.Skipped,
		stats.NodeCount,
		stats.RelationshipCount,
	)
	fmt.Fprintf(a.stderr, "Graph: %s\n", cfg.Output)
	return nil
}

// setup loads the config for rootDir, applies flags on top, and builds the
// logger.
func (a *app) setup(cmd *cobra.Command, rootDir string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.ForRoot(rootDir, a.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, a.exclude...)
	}
	if flags.Changed("languages") {
		cfg.Languages = a.languages
	}
	if flags.Changed("summary-script") {
		cfg.SummaryScript = a.summaryScript
	}
	if flags.Changed("no-git") {
		cfg.NoGit = a.noGit
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Path != "" {
		logger.Debug("config loaded", "path", cfg.Path)
	}
	return cfg, logger, nil
}

// applyPositional applies [output_path] [thread_count] [format]. Empty
// values are treated as absent. A bad thread count or format is a warning,
// not an error.
func applyPositional(cfg *config.Config, args []string, logger *slog.Logger) {
	outputGiven := false
	if len(args) > 0 && args[0] != "" {
		cfg.Output = args[0]
		outputGiven = true
	}
	if len(args) > 1 && args[1] != "" {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			logger.Warn("invalid thread count, defaulting to CPU count", "value", args[1], "cpus", runtime.NumCPU())
			n = 0
		}
		cfg.Workers = n
	}
	if len(args) > 2 && args[2] != "" {
		format, ok := config.ParseFormat(args[2])
		if !ok {
			logger.Warn("unsupported format, using json", "format", args[2])
			format = config.FormatJSON
		}
		cfg.Format = format
	}
	if !outputGiven && cfg.Format == config.FormatSQLite && cfg.Output == config.DefaultOutput {
		cfg.Output = defaultSQLiteOutput
	}
}

// newEngine builds an Engine from the merged configuration.
func newEngine(cfg *config.Config, logger *slog.Logger) (*codegraph.Engine, error) {
	opts := []codegraph.Option{
		codegraph.WithLogger(logger),
		codegraph.WithWorkers(cfg.Workers),
		codegraph.WithExclude(cfg.Exclude...),
		codegraph.WithNoGit(cfg.NoGit),
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, codegraph.WithLanguages(cfg.Languages...))
	}
	if cfg.SummaryScript != "" {
		s, err := codegraphrt.LoadScriptSummarizer(cfg.SummaryScript, codegraphrt.WithRuntimeLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("loading summary script: %w", err)
		}
		opts = append(opts, codegraph.WithSummarizer(s))
	}
	return codegraph.New(opts...)
}

// resolveRootDir returns the absolute path of the directory to index.
func resolveRootDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

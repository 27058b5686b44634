package codegraph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// fileResult is what one worker reports for one file.
type fileResult struct {
	path  string
	nodes int
	err   error
}

// IndexFiles extracts entities from paths with a fixed-size worker pool.
// Each worker reads a file, runs the extractor for its language and merges
// the resulting batch into the graph with one AddBatch call. Files that
// cannot be read, have no extractor, or fail to parse are logged and
// skipped.
//
// Once ctx is done no further files are started; files already being
// extracted finish, and ctx.Err() is returned.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) (IndexStats, error) {
	stats := IndexStats{Files: len(paths)}
	if len(paths) == 0 {
		return stats, nil
	}

	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(paths))

	workCh := make(chan string, len(paths))
	for _, p := range paths {
		workCh <- p
	}
	close(workCh)

	resultCh := make(chan fileResult, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workCh {
				if ctx.Err() != nil {
					return
				}
				n, err := e.indexFile(path)
				resultCh <- fileResult{path: path, nodes: n, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.err != nil {
			e.logger.Warn("skipping file", "path", res.path, "error", res.err)
			stats.Skipped++
			continue
		}
		stats.Indexed++
		stats.Nodes += res.nodes
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	e.logger.Debug("files indexed", "files", stats.Indexed, "skipped", stats.Skipped, "nodes", stats.Nodes)
	return stats, nil
}

// indexFile runs on a worker goroutine. It touches shared state only in
// the final AddBatch and through the concurrency-safe source cache.
func (e *Engine) indexFile(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve path: %w", err)
	}
	ext, lang, ok := e.registry.ForFile(abs)
	if !ok {
		if lang == "" {
			return 0, errors.New("unsupported file extension")
		}
		return 0, fmt.Errorf("no extractor for language %s", lang)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	nodes, err := ext.ExtractEntities(content, abs)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", lang, err)
	}

	e.sources.Put(abs, content)
	e.graph.AddBatch(nodes)
	return len(nodes), nil
}

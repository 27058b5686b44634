// Package discover finds the source files under a root directory that the
// indexer should extract.
package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

var (
	// ErrRootPathEmpty indicates the root path was not specified.
	ErrRootPathEmpty = errors.New("root path cannot be empty")

	// ErrRootPathNotExist indicates the root path does not exist.
	ErrRootPathNotExist = errors.New("root path does not exist")

	// ErrRootPathNotDir indicates the root path is not a directory.
	ErrRootPathNotDir = errors.New("root path is not a directory")

	// ErrInvalidPattern indicates an exclude pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// skipDirs are never descended into by the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// SkipDir reports whether a directory with this base name is left out of
// walks: hidden directories and dependency or cache trees.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skipDirs[name]
}

// Options configures Discover.
type Options struct {
	// Root is the directory to search.
	Root string
	// Extensions limits results to these file extensions (with the dot).
	Extensions []string
	// Exclude holds glob patterns matched against the slash-separated path
	// relative to Root and against the base name.
	Exclude []string
	// NoGit forces the filesystem walk even inside a git work tree.
	NoGit  bool
	Logger *slog.Logger
}

// Discover returns the absolute, symlink-resolved paths of every matching
// file under opts.Root, deduplicated and sorted. Inside a git work tree the
// file list comes from git ls-files; otherwise the tree is walked, honoring
// the root .gitignore and skipping hidden and vendored directories.
func Discover(ctx context.Context, opts Options) ([]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root, err := validateRoot(opts.Root)
	if err != nil {
		return nil, err
	}
	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	var candidates []string
	if !opts.NoGit {
		candidates, err = gitListFiles(ctx, root)
		if err != nil {
			logger.Debug("git ls-files unavailable, walking directory", "path", root, "error", err)
		}
	}
	if opts.NoGit || err != nil {
		candidates, err = walkListFiles(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	seen := make(map[string]bool)
	var paths []string
	for _, p := range candidates {
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(p))] {
			continue
		}
		if excluded(root, p, excludes) {
			continue
		}
		canonical, err := canonicalize(p)
		if err != nil {
			logger.Debug("skipping unresolvable path", "path", p, "error", err)
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		paths = append(paths, canonical)
	}
	sort.Strings(paths)
	return paths, nil
}

func validateRoot(root string) (string, error) {
	if root == "" {
		return "", ErrRootPathEmpty
	}
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return "", ErrRootPathNotExist
	}
	if err != nil {
		return "", fmt.Errorf("discover: stat root: %w", err)
	}
	if !info.IsDir() {
		return "", ErrRootPathNotDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("discover: resolve root: %w", err)
	}
	return abs, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// NewMatcher compiles exclude patterns into a predicate with the same
// matching rules Discover applies.
func NewMatcher(root string, patterns []string) (func(path string) bool, error) {
	matchers, err := compileGlobs(patterns)
	if err != nil {
		return nil, err
	}
	return func(path string) bool {
		return excluded(root, path, matchers)
	}, nil
}

func excluded(root, path string, matchers []glob.Glob) bool {
	if len(matchers) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, m := range matchers {
		if m.Match(rel) || m.Match(base) {
			return true
		}
	}
	return false
}

func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}

// gitListFiles lists tracked and untracked-but-not-ignored files under root.
func gitListFiles(ctx context.Context, root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, filepath.Join(root, line))
	}
	return paths, nil
}

// walkListFiles walks root, skipping hidden directories, node_modules,
// vendor, __pycache__ and anything the root .gitignore excludes.
func walkListFiles(ctx context.Context, root string) ([]string, error) {
	var gi *ignore.GitIgnore
	if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = compiled
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if SkipDir(name) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

package codegraph

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jward/codegraph/internal/config"
	"github.com/jward/codegraph/internal/graph"
	"github.com/jward/codegraph/internal/store"
)

// Export formats.
const (
	FormatJSON   = config.FormatJSON
	FormatSQLite = config.FormatSQLite
)

var sqliteMagic = []byte("SQLite format 3\x00")

// Export writes g to path in the given format.
func Export(ctx context.Context, g *Graph, root, path, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSONFile(g, path)
	case FormatSQLite:
		return WriteSQLiteFile(ctx, g, root, path)
	}
	return fmt.Errorf("codegraph: unknown export format %q", format)
}

// WriteJSONFile writes the graph document to path.
func WriteJSONFile(g *Graph, path string) error {
	return writeAtomic(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		if err := g.WriteJSON(w); err != nil {
			f.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// WriteSQLiteFile writes the graph to a new SQLite database at path,
// replacing any existing file.
func WriteSQLiteFile(ctx context.Context, g *Graph, root, path string) error {
	return writeAtomic(path, func(tmp string) error {
		s, err := store.NewStore(tmp)
		if err != nil {
			return err
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return err
		}
		if err := s.SaveGraph(ctx, g, root); err != nil {
			s.Close()
			return err
		}
		return s.Close()
	})
}

// writeAtomic reserves a temporary file next to path, lets write fill it,
// and renames it over path. On any error the temporary file is removed.
func writeAtomic(path string, write func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("codegraph: export %s: %w", path, err)
	}
	tmp := f.Name()
	f.Close()

	cleanup := func() {
		for _, p := range []string{tmp, tmp + "-wal", tmp + "-shm"} {
			os.Remove(p)
		}
	}
	if err := write(tmp); err != nil {
		cleanup()
		return fmt.Errorf("codegraph: export %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("codegraph: export %s: %w", path, err)
	}
	return nil
}

// LoadGraphFile reads a graph written by WriteJSONFile or WriteSQLiteFile.
// The format is detected from the file header.
func LoadGraphFile(ctx context.Context, path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codegraph: open graph: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("codegraph: read graph: %w", err)
	}
	if n == len(sqliteMagic) && bytes.Equal(header, sqliteMagic) {
		f.Close()
		s, err := store.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("codegraph: open graph: %w", err)
		}
		defer s.Close()
		return s.LoadGraph(ctx)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("codegraph: read graph: %w", err)
	}
	return graph.ReadJSON(bufio.NewReader(f))
}

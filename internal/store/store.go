// Package store persists a code graph to SQLite so it can be queried
// without re-indexing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/codegraph/internal/graph"
)

// Store is the SQLite data access layer for an exported graph.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT,
  node_count      INTEGER NOT NULL DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
  id              TEXT PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  content         TEXT,
  summary         TEXT
);

CREATE TABLE IF NOT EXISTS node_metadata (
  node_id         TEXT NOT NULL REFERENCES nodes(id),
  key             TEXT NOT NULL,
  value           TEXT NOT NULL,
  PRIMARY KEY (node_id, key)
);

-- Edge endpoints are not foreign keys: a relationship may name a node
-- that is not in the graph.
CREATE TABLE IF NOT EXISTS relationships (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  from_id         TEXT NOT NULL,
  to_id           TEXT NOT NULL,
  metadata        TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS graph_meta (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file_id);
CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_id, kind);
CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_id, kind);
`

const (
	metaRoot              = "root"
	metaIndexedAt         = "indexed_at"
	metaNodeCount         = "node_count"
	metaRelationshipCount = "relationship_count"
)

// SaveGraph replaces the database contents with g in a single transaction.
// On error nothing is changed.
func (s *Store) SaveGraph(ctx context.Context, g *graph.Graph, root string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save graph: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM node_metadata",
		"DELETE FROM relationships",
		"DELETE FROM nodes",
		"DELETE FROM files",
		"DELETE FROM graph_meta",
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("save graph: clear: %w", err)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	fileIDs := make(map[string]int64)
	for _, path := range g.Files() {
		nodes := g.FindInFile(path)
		var lang string
		if len(nodes) > 0 {
			lang, _ = nodes[0].Meta(graph.MetaLanguage)
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO files (path, language, node_count, last_indexed) VALUES (?, ?, ?, ?)",
			path, lang, len(nodes), now,
		)
		if err != nil {
			return fmt.Errorf("save graph: file %s: %w", path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("save graph: last insert id: %w", err)
		}
		fileIDs[path] = id
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (id, file_id, kind, name, start_line, end_line, content, summary) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("save graph: prepare nodes: %w", err)
	}
	defer nodeStmt.Close()
	metaStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO node_metadata (node_id, key, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("save graph: prepare metadata: %w", err)
	}
	defer metaStmt.Close()

	for _, n := range g.Nodes() {
		if _, err := nodeStmt.ExecContext(ctx,
			n.ID, fileIDs[n.FilePath], string(n.Kind), n.Name,
			n.LineRange.Start, n.LineRange.End, n.Content, nullString(n.Summary),
		); err != nil {
			return fmt.Errorf("save graph: node %q: %w", n.Name, err)
		}
		for k, v := range n.Metadata {
			if _, err := metaStmt.ExecContext(ctx, n.ID, k, v); err != nil {
				return fmt.Errorf("save graph: metadata %q: %w", k, err)
			}
		}
	}

	relStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO relationships (kind, from_id, to_id, metadata) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("save graph: prepare relationships: %w", err)
	}
	defer relStmt.Close()

	rels := g.Relationships()
	for _, r := range rels {
		if _, err := relStmt.ExecContext(ctx, string(r.Kind), r.FromID, r.ToID, marshalMetadata(r.Metadata)); err != nil {
			return fmt.Errorf("save graph: relationship: %w", err)
		}
	}

	meta := map[string]string{
		metaRoot:              root,
		metaIndexedAt:         now.Format(time.RFC3339),
		metaNodeCount:         strconv.Itoa(g.NodeCount()),
		metaRelationshipCount: strconv.Itoa(len(rels)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO graph_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save graph: meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save graph: commit: %w", err)
	}
	return nil
}

// LoadGraph rebuilds the stored graph.
func (s *Store) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.kind, n.name, f.path, n.start_line, n.end_line, n.content, n.summary
		FROM nodes n JOIN files f ON f.id = n.file_id
		ORDER BY f.path, n.start_line, n.id`)
	if err != nil {
		return nil, fmt.Errorf("load graph: nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	byID := make(map[string]*graph.Node)
	for rows.Next() {
		var (
			n       graph.Node
			kind    string
			content sql.NullString
			summary sql.NullString
		)
		if err := rows.Scan(&n.ID, &kind, &n.Name, &n.FilePath, &n.LineRange.Start, &n.LineRange.End, &content, &summary); err != nil {
			return nil, fmt.Errorf("load graph: scan node: %w", err)
		}
		n.Kind = graph.NodeKind(kind)
		n.Content = content.String
		if summary.Valid {
			text := summary.String
			n.Summary = &text
		}
		n.Metadata = make(map[string]string)
		nodes = append(nodes, &n)
		byID[n.ID] = &n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load graph: nodes: %w", err)
	}

	if err := s.loadMetadata(ctx, byID); err != nil {
		return nil, err
	}

	g := graph.New()
	for _, n := range nodes {
		g.AddNode(n)
	}

	relRows, err := s.db.QueryContext(ctx, "SELECT kind, from_id, to_id, metadata FROM relationships ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load graph: relationships: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var kind, from, to, meta string
		if err := relRows.Scan(&kind, &from, &to, &meta); err != nil {
			return nil, fmt.Errorf("load graph: scan relationship: %w", err)
		}
		g.AddRelationship(graph.Relationship{
			Kind:     graph.RelationKind(kind),
			FromID:   from,
			ToID:     to,
			Metadata: unmarshalMetadata(meta),
		})
	}
	if err := relRows.Err(); err != nil {
		return nil, fmt.Errorf("load graph: relationships: %w", err)
	}
	return g, nil
}

func (s *Store) loadMetadata(ctx context.Context, byID map[string]*graph.Node) error {
	rows, err := s.db.QueryContext(ctx, "SELECT node_id, key, value FROM node_metadata")
	if err != nil {
		return fmt.Errorf("load graph: metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, key, value string
		if err := rows.Scan(&id, &key, &value); err != nil {
			return fmt.Errorf("load graph: scan metadata: %w", err)
		}
		if n, ok := byID[id]; ok {
			n.Metadata[key] = value
		}
	}
	return rows.Err()
}

// Files returns every stored file, ordered by path.
func (s *Store) Files(ctx context.Context) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, language, node_count, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var lang sql.NullString
		if err := rows.Scan(&f.ID, &f.Path, &lang, &f.NodeCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Language = lang.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// Meta returns the description written by the last SaveGraph.
func (s *Store) Meta(ctx context.Context) (GraphMeta, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM graph_meta")
	if err != nil {
		return GraphMeta{}, fmt.Errorf("graph meta: %w", err)
	}
	defer rows.Close()

	var m GraphMeta
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return GraphMeta{}, fmt.Errorf("scan graph meta: %w", err)
		}
		switch key {
		case metaRoot:
			m.Root = value.String
		case metaIndexedAt:
			m.IndexedAt, _ = time.Parse(time.RFC3339, value.String)
		case metaNodeCount:
			m.NodeCount, _ = strconv.Atoi(value.String)
		case metaRelationshipCount:
			m.RelationshipCount, _ = strconv.Atoi(value.String)
		}
	}
	return m, rows.Err()
}

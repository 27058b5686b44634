package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	Path        string
	Language    string
	NodeCount   int
	LastIndexed time.Time
}

// GraphMeta describes the graph held by a database.
type GraphMeta struct {
	Root              string
	IndexedAt         time.Time
	NodeCount         int
	RelationshipCount int
}

package analyze

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSourceCacheSize is the number of files a SourceCache holds.
const DefaultSourceCacheSize = 256

// Sources provides file contents by path.
type Sources interface {
	Read(path string) ([]byte, error)
}

// SourceCache is an LRU of file contents in front of the filesystem. The
// orchestrator seeds it with the bytes it already read during extraction
// so inference usually avoids a second disk read.
type SourceCache struct {
	files *lru.Cache[string, []byte]
}

// NewSourceCache creates a cache holding up to size files.
func NewSourceCache(size int) (*SourceCache, error) {
	if size <= 0 {
		size = DefaultSourceCacheSize
	}
	files, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("analyze: source cache: %w", err)
	}
	return &SourceCache{files: files}, nil
}

// Put records the content of path.
func (c *SourceCache) Put(path string, content []byte) {
	c.files.Add(path, content)
}

// Read returns the cached content of path, reading and caching it on a miss.
func (c *SourceCache) Read(path string) ([]byte, error) {
	if content, ok := c.files.Get(path); ok {
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.files.Add(path, content)
	return content, nil
}

// Len returns the number of cached files.
func (c *SourceCache) Len() int {
	return c.files.Len()
}

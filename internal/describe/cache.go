package describe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// DefaultCacheSize is the number of parsed documents kept in memory.
const DefaultCacheSize = 8

type cacheEntry struct {
	size    int64
	modTime time.Time
	corpus  *Corpus
}

// Cache keeps parsed description documents keyed by absolute path. An entry
// is reused only while the file's size and modification time are unchanged.
// Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache creates a cache holding up to size documents.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, _ := lru.New[string, cacheEntry](size)
	return &Cache{entries: entries}
}

// Load returns the parsed document at path, parsing it on a miss.
func (c *Cache) Load(path string) (*Corpus, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, hberrors.New(hberrors.ErrCodeFileNotFound,
				fmt.Sprintf("description document not found: %s", abs), err).
				WithDetail("path", abs).
				WithSuggestion("Pass --descriptions or set input.descriptions")
		}
		return nil, hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot stat description document %s", abs), err)
	}

	if e, ok := c.entries.Get(abs); ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		c.hits.Add(1)
		return e.corpus, nil
	}
	c.misses.Add(1)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, hberrors.New(hberrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read description document %s", abs), err)
	}
	corpus, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	c.entries.Add(abs, cacheEntry{size: info.Size(), modTime: info.ModTime(), corpus: corpus})
	return corpus, nil
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns how many loads were served from memory and how many parsed
// the document.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached document.
func (c *Cache) Purge() {
	c.entries.Purge()
}

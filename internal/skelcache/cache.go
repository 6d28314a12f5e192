// Package skelcache memoizes skeleton extraction keyed by file mtime,
// component C of the navigator.
package skelcache

import (
	"os"
	"sync"
	"time"
)

// Extractor is the expensive operation the cache memoizes. Implemented by
// *skeleton.Extractor in production code; the interface lets the cache be
// tested without a real parser.
type Extractor interface {
	Squeeze(absPath string) (string, error)
}

type entry struct {
	skeleton string
	mtime    time.Time
}

// Cache maps absolute path to (skeleton, mtime). The parse runs outside the
// lock: a reader holding the mutex only ever touches the small paired
// fields, never the disk or the grammar.
type Cache struct {
	extractor Extractor
	mu        sync.Mutex
	entries   map[string]entry
}

// New builds a cache around an extractor.
func New(extractor Extractor) *Cache {
	return &Cache{
		extractor: extractor,
		entries:   make(map[string]entry),
	}
}

// Get returns the skeleton for absPath, computing and storing it if the
// cached entry is missing or stale. Returns ok=false if the file does not
// exist.
func (c *Cache) Get(absPath string) (skeleton string, ok bool, err error) {
	info, statErr := os.Stat(absPath)
	if statErr != nil {
		return "", false, nil
	}
	mtime := info.ModTime()

	c.mu.Lock()
	if e, found := c.entries[absPath]; found && e.mtime.Equal(mtime) {
		c.mu.Unlock()
		return e.skeleton, true, nil
	}
	c.mu.Unlock()

	skeleton, err = c.extractor.Squeeze(absPath)
	if err != nil {
		return "", false, err
	}

	c.mu.Lock()
	c.entries[absPath] = entry{skeleton: skeleton, mtime: mtime}
	c.mu.Unlock()

	return skeleton, true, nil
}

// Invalidate removes a cached entry, called by the watcher on modify/delete.
func (c *Cache) Invalidate(absPath string) {
	c.mu.Lock()
	delete(c.entries, absPath)
	c.mu.Unlock()
}

// Len reports the number of cached entries, surfaced by the status action.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package nav

import (
	"sync"

	"github.com/prowlfs/prowl/internal/fs"
)

// HistoryEntry remembers the view a caller had of path when it left:
// the entry list it was showing and the selection index. Keyed by path,
// overwritten on each departure, consumed on return.
type HistoryEntry struct {
	Path          string
	SelectedIndex int
	Items         []fs.Item
}

// HistoryCache holds at most one HistoryEntry per path. It is
// independent of the prefetch cache: keyed by navigation history, not
// tree topology.
type HistoryCache struct {
	mu      sync.Mutex
	entries map[string]HistoryEntry
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{entries: make(map[string]HistoryEntry)}
}

// Put stores entry, overwriting a prior entry for the same path.
func (c *HistoryCache) Put(entry HistoryEntry) {
	c.mu.Lock()
	c.entries[entry.Path] = entry
	c.mu.Unlock()
}

// Pop atomically removes and returns the entry for path. Absence is a
// normal outcome, reported as ok == false.
func (c *HistoryCache) Pop(path string) (HistoryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	if ok {
		delete(c.entries, path)
	}
	return entry, ok
}

// Len reports the number of remembered paths.
func (c *HistoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

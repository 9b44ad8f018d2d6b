package nav

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/fs"
)

// Handle is a memoized child-list computation for one directory. It is
// created pending and resolves exactly once; after resolution its fields
// never change.
type Handle struct {
	Path string

	done  chan struct{}
	items []fs.Item
	err   error
}

// Resolved returns the child items when the handle has completed
// successfully. Pending or failed handles report ok == false.
func (h *Handle) Resolved() ([]fs.Item, bool) {
	select {
	case <-h.done:
	default:
		return nil, false
	}
	if h.err != nil {
		return nil, false
	}
	return h.items, true
}

// Wait blocks until the handle resolves or ctx is done.
func (h *Handle) Wait(ctx context.Context) ([]fs.Item, error) {
	select {
	case <-h.done:
		return h.items, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PrefetchCache deduplicates in-flight and completed child-list
// computations keyed by canonical path. At most one live handle exists
// per path; failed computations remove themselves so the next Get
// retries instead of serving a cached error.
type PrefetchCache struct {
	mu      sync.Mutex
	handles map[string]*Handle
	list    func(path string) ([]fs.Item, error)
	log     *zap.Logger
}

// NewPrefetchCache builds a cache that resolves handles through list.
func NewPrefetchCache(list func(path string) ([]fs.Item, error), log *zap.Logger) *PrefetchCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PrefetchCache{
		handles: make(map[string]*Handle),
		list:    list,
		log:     log,
	}
}

// Get returns the live handle for path, creating a pending one and
// starting its listing when absent.
func (c *PrefetchCache) Get(path string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handles[path]; ok {
		return h
	}
	h := &Handle{Path: path, done: make(chan struct{})}
	c.handles[path] = h
	go c.resolve(h)
	return h
}

func (c *PrefetchCache) resolve(h *Handle) {
	items, err := c.list(h.Path)
	h.items, h.err = items, err
	close(h.done)

	if err != nil {
		// Never cache negative results.
		c.mu.Lock()
		if c.handles[h.Path] == h {
			delete(c.handles, h.Path)
		}
		c.mu.Unlock()
		c.log.Debug("prefetch failed", zap.String("path", h.Path), zap.Error(err))
	}
}

// Peek returns the resolved items for path without creating a handle.
func (c *PrefetchCache) Peek(path string) ([]fs.Item, bool) {
	c.mu.Lock()
	h, ok := c.handles[path]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return h.Resolved()
}

// Seed stores an already-resolved handle for path, replacing any live
// one. Used when a listing was just obtained through navigation, so the
// path is not re-requested.
func (c *PrefetchCache) Seed(path string, items []fs.Item) {
	h := &Handle{Path: path, done: make(chan struct{}), items: items}
	close(h.done)
	c.mu.Lock()
	c.handles[path] = h
	c.mu.Unlock()
}

// Invalidate discards any cached handle for path.
func (c *PrefetchCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.handles, path)
	c.mu.Unlock()
}

// Retain evicts every handle whose path is not in keep. An evicted
// pending handle still resolves for anyone already holding it; it is
// just never served again.
func (c *PrefetchCache) Retain(keep map[string]bool) {
	c.mu.Lock()
	for path := range c.handles {
		if !keep[path] {
			delete(c.handles, path)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of live handles.
func (c *PrefetchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

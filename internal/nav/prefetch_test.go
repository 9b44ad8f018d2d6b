package nav

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlfs/prowl/internal/fs"
)

func TestPrefetchDeduplicates(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})

	c := NewPrefetchCache(func(path string) ([]fs.Item, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return []fs.Item{{Name: "x", Path: path + "/x"}}, nil
	}, nil)

	h1 := c.Get("/dir")
	h2 := c.Get("/dir")
	assert.Same(t, h1, h2, "a live handle must be shared, pending or not")

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := h1.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Resolved handles are reused too.
	h3 := c.Get("/dir")
	assert.Same(t, h1, h3)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestPrefetchNeverCachesErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	c := NewPrefetchCache(func(path string) ([]fs.Item, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("permission denied")
		}
		return []fs.Item{{Name: "ok", Path: path + "/ok"}}, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Get("/dir").Wait(ctx)
	require.Error(t, err)

	// The failed handle must have removed itself so the next request retries.
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, time.Millisecond)

	items, err := c.Get("/dir").Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestPrefetchPeekAndSeed(t *testing.T) {
	c := NewPrefetchCache(func(path string) ([]fs.Item, error) {
		return nil, errors.New("must not be called")
	}, nil)

	_, ok := c.Peek("/dir")
	assert.False(t, ok, "Peek must not create handles")
	assert.Equal(t, 0, c.Len())

	seeded := []fs.Item{{Name: "a", Path: "/dir/a"}}
	c.Seed("/dir", seeded)

	items, ok := c.Peek("/dir")
	require.True(t, ok)
	assert.Equal(t, seeded, items)

	// A seeded path is live and must not be re-requested.
	h := c.Get("/dir")
	got, ok := h.Resolved()
	require.True(t, ok)
	assert.Equal(t, seeded, got)
}

func TestPrefetchRetain(t *testing.T) {
	release := make(chan struct{})
	c := NewPrefetchCache(func(path string) ([]fs.Item, error) {
		<-release
		return []fs.Item{{Name: "p", Path: path + "/p"}}, nil
	}, nil)

	c.Seed("/keep", []fs.Item{{Name: "k", Path: "/keep/k"}})
	c.Seed("/drop", []fs.Item{{Name: "d", Path: "/drop/d"}})
	pending := c.Get("/pending")

	c.Retain(map[string]bool{"/keep": true})
	assert.Equal(t, 1, c.Len())
	_, ok := c.Peek("/keep")
	assert.True(t, ok)
	_, ok = c.Peek("/drop")
	assert.False(t, ok)

	// An evicted pending handle still resolves for its holder but is
	// never served again.
	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NotSame(t, pending, c.Get("/pending"))
}

func TestPrefetchInvalidate(t *testing.T) {
	c := NewPrefetchCache(nil, nil)
	c.Seed("/dir", []fs.Item{{Name: "a", Path: "/dir/a"}})

	c.Invalidate("/dir")
	_, ok := c.Peek("/dir")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

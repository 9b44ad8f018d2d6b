package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlfs/prowl/internal/fs"
)

func TestHistoryPutPopConsumes(t *testing.T) {
	c := NewHistoryCache()
	c.Put(HistoryEntry{
		Path:          "/a",
		SelectedIndex: 3,
		Items:         []fs.Item{{Name: "b", Path: "/a/b", IsDir: true}},
	})

	entry, ok := c.Pop("/a")
	require.True(t, ok)
	assert.Equal(t, 3, entry.SelectedIndex)
	assert.Len(t, entry.Items, 1)

	// Consumed on return: a second pop misses.
	_, ok = c.Pop("/a")
	assert.False(t, ok)
}

func TestHistoryOverwritesPerPath(t *testing.T) {
	c := NewHistoryCache()
	c.Put(HistoryEntry{Path: "/a", SelectedIndex: 1})
	c.Put(HistoryEntry{Path: "/a", SelectedIndex: 7})
	assert.Equal(t, 1, c.Len())

	entry, ok := c.Pop("/a")
	require.True(t, ok)
	assert.Equal(t, 7, entry.SelectedIndex)
}

func TestHistoryMissIsNormal(t *testing.T) {
	c := NewHistoryCache()
	_, ok := c.Pop("/never-visited")
	assert.False(t, ok)
}

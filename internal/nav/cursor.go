package nav

import (
	"path/filepath"

	"github.com/prowlfs/prowl/internal/fs"
)

// Cursor is the navigator's single source of truth for the current view:
// the current directory's listing plus its parent's. A cursor is an
// immutable snapshot; every navigation or refresh commits a wholly new
// one. ParentPath is empty exactly when CurrentPath is a filesystem root.
type Cursor struct {
	CurrentPath   string
	Entries       []fs.Item
	ParentPath    string
	ParentEntries []fs.Item

	// Gen is the navigation generation this cursor was committed under.
	// Asynchronous completions compare it before writing results back.
	Gen uint64
}

// Entry returns the current entry whose path is path.
func (c *Cursor) Entry(path string) (fs.Item, bool) {
	for _, it := range c.Entries {
		if it.Path == path {
			return it, true
		}
	}
	return fs.Item{}, false
}

func parentOf(path string) string {
	parent := filepath.Dir(path)
	if parent == path {
		return ""
	}
	return parent
}

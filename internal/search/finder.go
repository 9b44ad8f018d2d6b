package search

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	pfs "github.com/prowlfs/prowl/internal/fs"
)

// Finder walks a directory tree to a bounded depth and collects items
// matching a query. The walk is parallel; result order is normalized
// afterwards.
type Finder struct {
	// MaxDepth bounds the walk relative to the root: 1 searches only
	// the root's immediate entries. Zero or negative means unbounded.
	MaxDepth int
	// IncludeHidden keeps dotfiles in the result set.
	IncludeHidden bool
	// Progress, when set, is called with the running match count.
	Progress func(found int)

	Logger *zap.Logger
}

// Find walks root and returns every item matching query, sorted by
// path. Cancelling ctx stops the walk and returns the matches so far.
func (f *Finder) Find(ctx context.Context, root string, query *Query) ([]pfs.Item, error) {
	log := f.Logger
	if log == nil {
		log = zap.NewNop()
	}
	matcher := NewMatcher(query)
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	var mu sync.Mutex
	var results []pfs.Item
	lastReport := 0

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == root {
			return nil
		}

		name := d.Name()
		hidden := strings.HasPrefix(name, ".")
		if hidden && !f.IncludeHidden {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		depth := strings.Count(path, string(filepath.Separator)) - rootDepth
		if f.MaxDepth > 0 && depth > f.MaxDepth {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		item := pfs.Item{
			Name:     name,
			Path:     path,
			IsDir:    d.IsDir(),
			IsHidden: hidden,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}
		if !matcher.Match(item) {
			return nil
		}

		mu.Lock()
		results = append(results, item)
		n := len(results)
		report := f.Progress != nil && n-lastReport >= 10
		if report {
			lastReport = n
		}
		mu.Unlock()
		if report {
			f.Progress(n)
		}
		return nil
	})

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	if err != nil && err != ctx.Err() {
		log.Warn("search walk failed", zap.String("root", root), zap.Error(err))
		return results, err
	}
	log.Debug("search complete", zap.String("root", root), zap.Int("matches", len(results)))
	return results, ctx.Err()
}

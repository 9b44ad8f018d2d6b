package nav

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/fs"
)

// Lister is the directory-store subset the navigator reads through.
type Lister interface {
	List(path string, opts fs.ListOptions) ([]fs.Item, error)
	Exists(path string) bool
}

// Watcher establishes change-notification subscriptions, one path each.
type Watcher interface {
	Watch(path string, onChange func()) (fs.Subscription, error)
}

// Options configures a Navigator.
type Options struct {
	// List is the filter/sort policy applied to every listing.
	List fs.ListOptions
	// Watcher, when set, keeps the current directory live. The
	// navigator holds exactly one subscription at a time.
	Watcher Watcher
	// OnChange is invoked after the navigator has refreshed the current
	// directory in response to a change notification.
	OnChange func(path string)
	Logger   *zap.Logger
}

// Navigator maintains the cursor and the speculative prefetch tree
// around it. Navigation operations are serialized on an exclusive
// per-navigator lane; reads of the committed cursor are lock-free.
type Navigator struct {
	store    Lister
	watcher  Watcher
	onChange func(string)
	log      *zap.Logger

	prefetch *PrefetchCache
	listOpts fs.ListOptions

	mu     sync.Mutex // the exclusive navigation lane
	gen    atomic.Uint64
	cursor atomic.Pointer[Cursor]
	sub    fs.Subscription
}

// New creates a navigator positioned at startPath. A non-nil navigator
// may be returned together with a *fs.WatchError: navigation works but
// the initial directory will not receive live updates.
func New(store Lister, startPath string, opts Options) (*Navigator, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	n := &Navigator{
		store:    store,
		watcher:  opts.Watcher,
		onChange: opts.OnChange,
		log:      log,
		listOpts: opts.List,
	}
	n.prefetch = NewPrefetchCache(n.list, log)

	entries, err := n.list(startPath)
	if err != nil {
		return nil, &NavigationError{Op: "start", Path: startPath, Err: errors.Join(ErrListFailed, err)}
	}

	n.mu.Lock()
	watchErr := n.commitLocked(startPath, entries, parentOf(startPath), nil, true)
	n.mu.Unlock()
	return n, watchErr
}

func (n *Navigator) list(path string) ([]fs.Item, error) {
	return n.store.List(path, n.listOpts)
}

// Current returns the last-committed cursor. Pure read, no I/O. The
// returned cursor is shared; callers must not mutate it.
func (n *Navigator) Current() *Cursor {
	return n.cursor.Load()
}

// ItemCount reports the number of entries in the current view.
func (n *Navigator) ItemCount() int {
	return len(n.Current().Entries)
}

// ToChild descends into childPath, which must be a directory entry of
// the current listing. When re-priming has already resolved the child's
// listing it is promoted with zero additional I/O.
func (n *Navigator) ToChild(childPath string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.toChildLocked(childPath)
}

func (n *Navigator) toChildLocked(childPath string) error {
	cur := n.cursor.Load()
	child, ok := cur.Entry(childPath)
	if !ok || !child.IsDir {
		return &NavigationError{Op: "to-child", Path: childPath, Err: ErrNotFound}
	}

	entries, ok := n.prefetch.Peek(childPath)
	if !ok {
		// Prefetch has not resolved yet; race decided in favor of a
		// direct listing. The commit below reseeds the handle.
		var err error
		entries, err = n.list(childPath)
		if err != nil {
			return &NavigationError{Op: "to-child", Path: childPath, Err: errors.Join(ErrListFailed, err)}
		}
	}
	return n.commitLocked(childPath, entries, cur.CurrentPath, cur.Entries, true)
}

// ToParent ascends to the tracked parent, promoting its cached entries
// without I/O. The new parent (the grandparent) resolves in the
// background under the generation guard.
func (n *Navigator) ToParent() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.toParentLocked()
}

func (n *Navigator) toParentLocked() error {
	cur := n.cursor.Load()
	if cur.ParentPath == "" {
		return &NavigationError{Op: "to-parent", Path: cur.CurrentPath, Err: ErrNoParent}
	}

	entries := cur.ParentEntries
	if entries == nil {
		// Background parent resolution has not landed yet.
		if items, ok := n.prefetch.Peek(cur.ParentPath); ok {
			entries = items
		} else {
			var err error
			entries, err = n.list(cur.ParentPath)
			if err != nil {
				return &NavigationError{Op: "to-parent", Path: cur.ParentPath, Err: errors.Join(ErrListFailed, err)}
			}
		}
	}
	return n.commitLocked(cur.ParentPath, entries, parentOf(cur.ParentPath), nil, true)
}

// ToPath jumps to an arbitrary directory, dispatching cheapest first:
// the current path is a no-op, the parent behaves as ToParent, a child
// behaves as ToChild, anything else is listed fresh.
func (n *Navigator) ToPath(target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.cursor.Load()
	if target == cur.CurrentPath {
		return nil
	}
	if target == cur.ParentPath {
		return n.toParentLocked()
	}
	if _, ok := cur.Entry(target); ok {
		// A file entry is rejected by the child dispatch rather than
		// falling through to a fresh listing of a non-directory.
		return n.toChildLocked(target)
	}

	entries, err := n.list(target)
	if err != nil {
		return &NavigationError{Op: "to-path", Path: target, Err: errors.Join(ErrListFailed, err)}
	}
	parent := parentOf(target)
	if parent != "" && !n.store.Exists(parent) {
		parent = ""
	}
	return n.commitLocked(target, entries, parent, nil, true)
}

// Refresh re-lists the current directory, replacing its entries while
// leaving the parent fields and the watch subscription untouched.
// Invoked by the change-notification callback.
func (n *Navigator) Refresh() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.cursor.Load()
	entries, err := n.list(cur.CurrentPath)
	if err != nil {
		return &NavigationError{Op: "refresh", Path: cur.CurrentPath, Err: errors.Join(ErrListFailed, err)}
	}

	c := &Cursor{
		CurrentPath:   cur.CurrentPath,
		Entries:       entries,
		ParentPath:    cur.ParentPath,
		ParentEntries: cur.ParentEntries,
		Gen:           n.gen.Add(1),
	}
	n.cursor.Store(c)

	// Vanished children drop out of the retention set along with
	// anything else outside the fresh view.
	n.prefetch.Retain(keepSet(c))
	n.prefetch.Seed(c.CurrentPath, entries)

	// Re-prime the current level only.
	for _, it := range entries {
		if it.IsDir {
			n.prefetch.Get(it.Path)
		}
	}
	n.log.Debug("refreshed", zap.String("path", c.CurrentPath), zap.Int("entries", len(entries)))
	return nil
}

// Invalidate discards the prefetch handle for path. Called by the
// command surface after mutating a directory's contents.
func (n *Navigator) Invalidate(path string) {
	n.prefetch.Invalidate(path)
}

// Close cancels the live change subscription.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		n.sub.Cancel()
		n.sub = nil
	}
}

// commitLocked installs a new cursor, re-subscribes the watch when the
// current path moved, and kicks off re-priming. Requires n.mu.
func (n *Navigator) commitLocked(currentPath string, entries []fs.Item, parentPath string, parentEntries []fs.Item, rewatch bool) error {
	c := &Cursor{
		CurrentPath:   currentPath,
		Entries:       entries,
		ParentPath:    parentPath,
		ParentEntries: parentEntries,
		Gen:           n.gen.Add(1),
	}
	n.cursor.Store(c)

	// The arena holds exactly the live view: current, parent, and one
	// level of grandchildren. Everything outside it is evicted here so a
	// long session never accumulates listings.
	n.prefetch.Retain(keepSet(c))

	// Listings just obtained through navigation must not be re-requested.
	n.prefetch.Seed(currentPath, entries)
	if parentPath != "" && parentEntries != nil {
		n.prefetch.Seed(parentPath, parentEntries)
	}

	var watchErr error
	if rewatch {
		watchErr = n.rewatchLocked(currentPath)
	}
	n.reprime(c)
	n.log.Debug("cursor committed",
		zap.String("path", currentPath),
		zap.String("parent", parentPath),
		zap.Uint64("gen", c.Gen))
	return watchErr
}

// keepSet is the arena retention set for a cursor: the current path,
// its parent, and every entry of the current listing.
func keepSet(c *Cursor) map[string]bool {
	keep := make(map[string]bool, len(c.Entries)+2)
	keep[c.CurrentPath] = true
	if c.ParentPath != "" {
		keep[c.ParentPath] = true
	}
	for _, it := range c.Entries {
		keep[it.Path] = true
	}
	return keep
}

// rewatchLocked cancels the previous subscription before establishing
// the new one, so no notification for an abandoned path is delivered
// after the cursor has moved on. Requires n.mu.
func (n *Navigator) rewatchLocked(path string) error {
	if n.sub != nil {
		n.sub.Cancel()
		n.sub = nil
	}
	if n.watcher == nil {
		return nil
	}
	sub, err := n.watcher.Watch(path, func() { n.handleChange(path) })
	if err != nil {
		var werr *fs.WatchError
		if errors.As(err, &werr) {
			return err
		}
		return &fs.WatchError{Path: path, Err: err}
	}
	n.sub = sub
	return nil
}

func (n *Navigator) handleChange(path string) {
	if cur := n.cursor.Load(); cur == nil || cur.CurrentPath != path {
		return
	}
	if err := n.Refresh(); err != nil {
		n.log.Warn("refresh after change failed", zap.String("path", path), zap.Error(err))
		return
	}
	if n.onChange != nil {
		n.onChange(path)
	}
}

// reprime speculatively populates one level of grandchildren and, when
// unknown, the parent listing. Fire-and-forget: failures are logged by
// the arena and stale parent results are discarded by the generation
// guard.
func (n *Navigator) reprime(c *Cursor) {
	for _, it := range c.Entries {
		if it.IsDir {
			n.prefetch.Get(it.Path)
		}
	}
	if c.ParentPath != "" && c.ParentEntries == nil {
		go n.resolveParent(c)
	}
}

// resolveParent fills in ParentEntries for the cursor generation it was
// started for; a completion that lands after another navigation is
// discarded.
func (n *Navigator) resolveParent(c *Cursor) {
	items, err := n.list(c.ParentPath)
	if err != nil {
		n.log.Debug("parent listing failed", zap.String("path", c.ParentPath), zap.Error(err))
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	live := n.cursor.Load()
	if live.Gen != c.Gen {
		return // stale: the cursor has moved on
	}
	updated := *live
	updated.ParentEntries = items
	n.cursor.Store(&updated)
	n.prefetch.Seed(c.ParentPath, items)
}

// Package clipboard is the command surface of the engine: it holds the
// single clipboard state and translates copy/cut/paste/delete/trash/
// create/rename verbs into directory-store calls, sequencing mutations
// per path and invalidating caches afterward.
package clipboard

import (
	"errors"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/fs"
)

// ErrEmpty is returned by Paste when no clipboard action is set.
var ErrEmpty = errors.New("clipboard is empty")

// Action is the pending clipboard verb.
type Action int

const (
	ActionNone Action = iota
	ActionCopy
	ActionCut
)

func (a Action) String() string {
	switch a {
	case ActionCopy:
		return "copy"
	case ActionCut:
		return "cut"
	default:
		return "none"
	}
}

// State is the clipboard content. Items is non-empty whenever Action is
// set; Set replaces the whole state, there is no merging.
type State struct {
	Items  []fs.Item
	Action Action
}

// Store is the mutation subset of the directory store the surface calls.
type Store interface {
	Create(name, parentPath string, kind fs.Kind) error
	Rename(oldName, newName, parentPath string) error
	Delete(path string, kind fs.Kind) error
	Trash(path string) error
	Copy(path, destDir string) error
	Move(path, destDir string, kind fs.Kind) error
}

// Surface owns the clipboard state and executes mutation verbs.
// Batch verbs are best-effort: every item is attempted, failures are
// aggregated, successes stand.
type Surface struct {
	store      Store
	invalidate func(path string)
	log        *zap.Logger

	mu    sync.Mutex
	state State

	locks pathLocks
}

// New creates a surface. invalidate, when non-nil, is called with each
// directory whose contents a successful mutation changed.
func New(store Store, invalidate func(path string), log *zap.Logger) *Surface {
	if log == nil {
		log = zap.NewNop()
	}
	if invalidate == nil {
		invalidate = func(string) {}
	}
	return &Surface{store: store, invalidate: invalidate, log: log}
}

// Set replaces the clipboard state wholesale.
func (s *Surface) Set(items []fs.Item, action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if action == ActionNone || len(items) == 0 {
		s.state = State{}
		return
	}
	s.state = State{Items: append([]fs.Item(nil), items...), Action: action}
	s.log.Debug("clipboard set", zap.Stringer("action", action), zap.Int("items", len(items)))
}

// Clear empties the clipboard.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
}

// Get returns a copy of the clipboard state.
func (s *Surface) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Items: append([]fs.Item(nil), s.state.Items...), Action: s.state.Action}
}

// Paste applies the pending clipboard action into destDir. Copy
// duplicates the items; cut duplicates then deletes each source and
// clears the clipboard only when every item succeeded, so a partial
// failure can be retried. One aggregated error reports all failures.
func (s *Surface) Paste(destDir string) error {
	state := s.Get()
	if state.Action == ActionNone || len(state.Items) == 0 {
		return ErrEmpty
	}

	var errs []error
	for _, item := range state.Items {
		err := s.pasteOne(item, destDir, state.Action)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if state.Action == ActionCut {
			s.invalidate(parentDir(item.Path))
		}
	}
	s.invalidate(destDir)

	if len(errs) > 0 {
		s.log.Warn("paste finished with failures",
			zap.Stringer("action", state.Action),
			zap.Int("failed", len(errs)),
			zap.Int("total", len(state.Items)))
		return errors.Join(errs...)
	}
	if state.Action == ActionCut {
		s.Clear()
	}
	return nil
}

func (s *Surface) pasteOne(item fs.Item, destDir string, action Action) error {
	unlock := s.locks.lock(item.Path)
	defer unlock()

	if action == ActionCut {
		return s.store.Move(item.Path, destDir, kindOf(item))
	}
	return s.store.Copy(item.Path, destDir)
}

// Delete permanently removes every item in the set, best-effort.
func (s *Surface) Delete(items []fs.Item) error {
	return s.batch(items, func(item fs.Item) error {
		return s.store.Delete(item.Path, kindOf(item))
	})
}

// Trash moves every item in the set to the system trash, best-effort.
func (s *Surface) Trash(items []fs.Item) error {
	return s.batch(items, s.trashOne)
}

func (s *Surface) trashOne(item fs.Item) error {
	return s.store.Trash(item.Path)
}

func (s *Surface) batch(items []fs.Item, op func(fs.Item) error) error {
	var errs []error
	for _, item := range items {
		unlock := s.locks.lock(item.Path)
		err := op(item)
		unlock()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.invalidate(parentDir(item.Path))
	}
	return errors.Join(errs...)
}

// Create makes a new file or folder in parentPath. An absent name means
// the caller cancelled input: a no-op, not an error.
func (s *Surface) Create(name, parentPath string, kind fs.Kind) error {
	if name == "" {
		return nil
	}
	unlock := s.locks.lock(filepath.Join(parentPath, name))
	defer unlock()
	if err := s.store.Create(name, parentPath, kind); err != nil {
		return err
	}
	s.invalidate(parentPath)
	return nil
}

// Rename renames an item within parentPath. Absent names are caller-
// cancelled input and a no-op.
func (s *Surface) Rename(oldName, newName, parentPath string) error {
	if oldName == "" || newName == "" {
		return nil
	}
	unlock := s.locks.lock(filepath.Join(parentPath, oldName))
	defer unlock()
	if err := s.store.Rename(oldName, newName, parentPath); err != nil {
		return err
	}
	s.invalidate(parentPath)
	return nil
}

func kindOf(item fs.Item) fs.Kind {
	if item.IsDir {
		return fs.KindFolder
	}
	return fs.KindFile
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

// pathLocks serializes mutations that target the same path. Entries are
// reference-counted so the table does not grow with session length.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func (l *pathLocks) lock(path string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*pathLock)
	}
	entry, ok := l.m[path]
	if !ok {
		entry = &pathLock{}
		l.m[path] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, path)
		}
		l.mu.Unlock()
	}
}

package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/trash"
)

// Common file permission modes.
const (
	DirPermission  = 0o755
	FilePermission = 0o644
)

// Store performs raw filesystem operations. All methods are safe for
// concurrent use; callers that mutate the same path concurrently must
// sequence those calls themselves.
type Store struct {
	log *zap.Logger
}

// NewStore returns a store logging through log. A nil logger disables
// store logging.
func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{log: log}
}

// List reads the immediate entries of path, applying the filter and
// sort policies in opts. Fails with *ListError when path is missing,
// not a directory, or unreadable.
func (s *Store) List(path string, opts ListOptions) ([]Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &ListError{Path: path, Err: errors.New("not a directory")}
	}

	var result []Item
	var mu sync.Mutex

	// Follow symlinks so entries report their target's type.
	conf := &fastwalk.Config{Follow: true}
	pathLen := len(path)

	err = fastwalk.Walk(conf, path, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.log.Debug("list: walk error", zap.String("path", fullPath), zap.Error(walkErr))
			return nil // skip unreadable entries, keep walking
		}
		if fullPath == path {
			return nil
		}

		// Only direct children: the remainder after the root prefix
		// must not contain a separator.
		relStart := pathLen
		if relStart < len(fullPath) && (fullPath[relStart] == '/' || fullPath[relStart] == '\\') {
			relStart++
		}
		if strings.ContainsAny(fullPath[relStart:], "/\\") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			// Broken symlink: fall back to lstat.
			info, err = os.Lstat(fullPath)
			if err != nil {
				s.log.Debug("list: skipping entry", zap.String("path", fullPath), zap.Error(err))
				return nil
			}
		}

		mu.Lock()
		result = append(result, Item{
			Name:     d.Name(),
			Path:     fullPath,
			IsDir:    info.IsDir(),
			IsHidden: isHiddenName(d.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		mu.Unlock()

		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, &ListError{Path: path, Err: err}
	}

	result = applyOptions(result, opts)
	s.log.Debug("list", zap.String("path", path), zap.Int("entries", len(result)))
	return result, nil
}

func applyOptions(items []Item, opts ListOptions) []Item {
	if opts.HideHidden || opts.Filter != nil {
		kept := items[:0]
		for _, it := range items {
			if opts.HideHidden && it.IsHidden {
				continue
			}
			if opts.Filter != nil && !opts.Filter(it) {
				continue
			}
			kept = append(kept, it)
		}
		items = kept
	}
	less := opts.Sort
	if less == nil {
		less = defaultOrder
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return items
}

// defaultOrder lists directories first, then names case-insensitively.
func defaultOrder(a, b Item) bool {
	if a.IsDir != b.IsDir {
		return a.IsDir
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Create makes a new empty file or folder named name inside parentPath.
func (s *Store) Create(name, parentPath string, kind Kind) error {
	path := filepath.Join(parentPath, name)
	if s.Exists(path) {
		return &MutationError{Op: "create", Source: path, Err: os.ErrExist}
	}
	if kind == KindFolder {
		if err := os.Mkdir(path, DirPermission); err != nil {
			return &MutationError{Op: "create", Source: path, Err: err}
		}
	} else {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FilePermission)
		if err != nil {
			return &MutationError{Op: "create", Source: path, Err: err}
		}
		f.Close()
	}
	s.log.Debug("create", zap.String("path", path), zap.Stringer("kind", kind))
	return nil
}

// Rename renames oldName to newName inside parentPath. Equal names are
// a no-op.
func (s *Store) Rename(oldName, newName, parentPath string) error {
	if oldName == newName {
		return nil
	}
	oldPath := filepath.Join(parentPath, oldName)
	newPath := filepath.Join(parentPath, newName)
	if s.Exists(newPath) {
		return &MutationError{Op: "rename", Source: oldPath, Dest: newPath, Err: os.ErrExist}
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return &MutationError{Op: "rename", Source: oldPath, Dest: newPath, Err: err}
	}
	s.log.Debug("rename", zap.String("from", oldPath), zap.String("to", newPath))
	return nil
}

// Delete permanently removes path; directories are removed recursively.
func (s *Store) Delete(path string, kind Kind) error {
	var err error
	if kind == KindFolder {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return &MutationError{Op: "delete", Source: path, Err: err}
	}
	s.log.Debug("delete", zap.String("path", path))
	return nil
}

// Trash moves path to the system trash instead of deleting it.
func (s *Store) Trash(path string) error {
	if err := trash.MoveToTrash(path); err != nil {
		return &MutationError{Op: "trash", Source: path, Err: err}
	}
	s.log.Debug("trash", zap.String("path", path))
	return nil
}

// Copy duplicates path (file or directory tree) into destDir, keeping
// the base name. The source is not touched.
func (s *Store) Copy(path, destDir string) error {
	dst := filepath.Join(destDir, filepath.Base(path))
	if s.Exists(dst) {
		return &MutationError{Op: "copy", Source: path, Dest: dst, Err: os.ErrExist}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &MutationError{Op: "copy", Source: path, Dest: dst, Err: err}
	}
	if info.IsDir() {
		err = s.copyDir(path, dst)
	} else {
		err = copyFile(path, dst, info.Mode())
	}
	if err != nil {
		return &MutationError{Op: "copy", Source: path, Dest: dst, Err: err}
	}
	s.log.Debug("copy", zap.String("from", path), zap.String("to", dst))
	return nil
}

// Move relocates path into destDir as copy-then-delete. A failed copy
// is surfaced before the source is deleted, so data is never dropped
// silently.
func (s *Store) Move(path, destDir string, kind Kind) error {
	if err := s.Copy(path, destDir); err != nil {
		var merr *MutationError
		if errors.As(err, &merr) {
			return &MutationError{Op: "move", Source: merr.Source, Dest: merr.Dest, Err: merr.Err}
		}
		return err
	}
	if err := s.Delete(path, kind); err != nil {
		return &MutationError{Op: "move", Source: path, Dest: destDir, Err: err}
	}
	return nil
}

// copyDir copies a directory tree. A single fastwalk pass collects the
// items, then directories are created parent-first and files copied.
func (s *Store) copyDir(src, dst string) error {
	type copyItem struct {
		srcPath string
		dstPath string
		isDir   bool
		mode    iofs.FileMode
	}
	var items []copyItem
	var itemsMu sync.Mutex

	conf := &fastwalk.Config{Follow: true}
	srcLen := len(src)

	err := fastwalk.Walk(conf, src, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel := fullPath[srcLen:]
		if len(rel) > 0 && (rel[0] == '/' || rel[0] == '\\') {
			rel = rel[1:]
		}
		if rel == "" {
			return nil // source root itself
		}
		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return nil
		}
		itemsMu.Lock()
		items = append(items, copyItem{
			srcPath: fullPath,
			dstPath: filepath.Join(dst, rel),
			isDir:   info.IsDir(),
			mode:    info.Mode(),
		})
		itemsMu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, DirPermission); err != nil {
		return err
	}

	// Directories before files, parents before children.
	sort.Slice(items, func(i, j int) bool {
		if items[i].isDir != items[j].isDir {
			return items[i].isDir
		}
		return len(items[i].dstPath) < len(items[j].dstPath)
	})

	for _, item := range items {
		if item.isDir {
			if err := os.MkdirAll(item.dstPath, item.mode); err != nil {
				return err
			}
		} else {
			if err := copyFile(item.srcPath, item.dstPath, item.mode); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string, mode iofs.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}

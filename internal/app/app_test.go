package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/clipboard"
	"github.com/prowlfs/prowl/internal/fs"
	"github.com/prowlfs/prowl/internal/nav"
	"github.com/prowlfs/prowl/internal/store"
)

// newTestApp builds an app over a real temp directory. The bookmarks
// database is left closed, so db-backed calls are no-ops.
func newTestApp(t *testing.T, startPath string) *App {
	t.Helper()
	watcher, err := fs.NewWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)

	a := &App{
		store:         fs.NewStore(nil),
		watcher:       watcher,
		history:       nav.NewHistoryCache(),
		db:            store.NewDB(nil),
		log:           zap.NewNop(),
		homePath:      t.TempDir(),
		selectedIndex: -1,
		marked:        make(map[string]bool),
		Events:        make(chan string, 8),
	}
	a.clip = clipboard.New(a.store, a.onMutation, nil)

	a.nav, err = nav.New(a.store, startPath, a.navOptions())
	require.NoError(t, err)
	a.setSelection(0)

	t.Cleanup(func() {
		a.nav.Close()
		watcher.Close()
	})
	return a
}

// makeTree builds root/{alpha,beta}/ and root/notes.txt; alpha holds
// one file.
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "alpha"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "beta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", "inner.txt"), []byte("i"), 0o644))
	return root
}

func TestEnterAndReturnRestoresSelection(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	// Listing is alpha, beta, notes.txt. Dirs sort as listed.
	a.Select(0)
	item, ok := a.SelectedItem()
	require.True(t, ok)
	require.Equal(t, "alpha", item.Name)

	require.NoError(t, a.EnterSelected())
	assert.Equal(t, filepath.Join(root, "alpha"), a.Current().CurrentPath)
	assert.Equal(t, 0, a.Selection())

	require.NoError(t, a.GoParent())
	assert.Equal(t, root, a.Current().CurrentPath)
	item, ok = a.SelectedItem()
	require.True(t, ok)
	assert.Equal(t, "alpha", item.Name, "departing selection restored")
}

func TestSelectionClamped(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	a.Select(99)
	assert.Equal(t, a.nav.ItemCount()-1, a.Selection())
	a.Select(-5)
	assert.Equal(t, 0, a.Selection())
}

func TestWorkingSetPrefersMarks(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	// No marks: working set is the selection.
	a.Select(2)
	set := a.WorkingSet()
	require.Len(t, set, 1)
	assert.Equal(t, "notes.txt", set[0].Name)

	a.Select(0)
	a.ToggleMark()
	a.Select(1)
	a.ToggleMark()
	a.Select(2)

	set = a.WorkingSet()
	require.Len(t, set, 2)
	assert.Equal(t, "alpha", set[0].Name)
	assert.Equal(t, "beta", set[1].Name)

	a.ClearMarks()
	assert.Equal(t, 0, a.MarkedCount())
}

func TestMutationRefreshesCurrentView(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	before := a.nav.ItemCount()
	require.NoError(t, a.Clipboard().Create("gamma", root, fs.KindFolder))
	assert.Equal(t, before+1, a.nav.ItemCount())

	var found bool
	for _, e := range a.Current().Entries {
		if e.Name == "gamma" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExpandPath(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	assert.Equal(t, a.homePath, a.ExpandPath("~"))
	assert.Equal(t, filepath.Join(a.homePath, "docs"), a.ExpandPath("~/docs"))
	assert.Equal(t, filepath.Join(root, "alpha"), a.ExpandPath("alpha"))
	assert.Equal(t, filepath.Dir(root), a.ExpandPath(".."))
	assert.Equal(t, "/tmp", a.ExpandPath("/tmp"))
	assert.Equal(t, root, a.ExpandPath(""))
}

func TestToggleHiddenRebuildsView(t *testing.T) {
	root := makeTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".dotfile"), []byte("d"), 0o644))
	a := newTestApp(t, root)

	require.Equal(t, 3, a.nav.ItemCount(), "dotfile hidden by default")

	require.NoError(t, a.ToggleHidden())
	assert.True(t, a.ShowHidden())
	assert.Equal(t, 4, a.nav.ItemCount())

	require.NoError(t, a.ToggleHidden())
	assert.Equal(t, 3, a.nav.ItemCount())
}

// failWatcher denies every subscription, so each navigation commits
// with a *fs.WatchError.
type failWatcher struct{}

func (failWatcher) Watch(path string, _ func()) (fs.Subscription, error) {
	return nil, &fs.WatchError{Path: path, Err: errors.New("inotify limit")}
}

func TestNavigationCommitsDespiteWatchFailure(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	a.nav.Close()
	n, err := nav.New(a.store, root, nav.Options{Watcher: failWatcher{}, Logger: zap.NewNop()})
	var werr *fs.WatchError
	require.ErrorAs(t, err, &werr)
	require.NotNil(t, n)
	a.nav = n

	a.Select(1) // beta
	err = a.Jump(filepath.Join(root, "alpha"))
	require.ErrorAs(t, err, &werr, "watch degradation is surfaced")

	assert.Equal(t, filepath.Join(root, "alpha"), a.Current().CurrentPath,
		"the navigation committed")
	assert.Equal(t, 0, a.Selection(), "selection reset for the new view")

	err = a.GoParent()
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, root, a.Current().CurrentPath)
	assert.Equal(t, 1, a.Selection(), "remembered selection restored")
}

func TestJumpRestoresRememberedSelection(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	a.Select(1) // beta
	require.NoError(t, a.Jump(filepath.Join(root, "alpha")))
	assert.Equal(t, 0, a.Selection(), "fresh directory starts at the top")

	require.NoError(t, a.Jump(root))
	assert.Equal(t, 1, a.Selection(), "remembered selection restored")
}

// Package app wires the engine together: the directory store, the
// watcher, the navigator, the clipboard surface, the history cache and
// the bookmarks database, plus the interactive shell that drives them.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/clipboard"
	"github.com/prowlfs/prowl/internal/config"
	"github.com/prowlfs/prowl/internal/fs"
	"github.com/prowlfs/prowl/internal/nav"
	"github.com/prowlfs/prowl/internal/search"
	"github.com/prowlfs/prowl/internal/store"
)

// App owns every long-lived component of a session.
type App struct {
	cfg     config.Config
	store   *fs.Store
	watcher *fs.Watcher
	nav     *nav.Navigator
	clip    *clipboard.Surface
	history *nav.HistoryCache
	db      *store.DB
	dbReady bool
	log     *zap.Logger

	homePath string

	mu            sync.Mutex
	selectedIndex int
	marked        map[string]bool

	// Change notifications from the watcher, drained by the shell loop.
	Events chan string
}

// New assembles an app from config. The navigator is not started until
// Start is called with the initial path.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home, _ = os.Getwd()
	}

	debounce := time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond
	watcher, err := fs.NewWatcher(debounce, log.Named("watch"))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:           cfg,
		store:         fs.NewStore(log.Named("fs")),
		watcher:       watcher,
		history:       nav.NewHistoryCache(),
		db:            store.NewDB(log.Named("store")),
		log:           log,
		homePath:      home,
		selectedIndex: -1,
		marked:        make(map[string]bool),
		Events:        make(chan string, 8),
	}
	a.clip = clipboard.New(a.store, a.onMutation, log.Named("clip"))
	return a, nil
}

// Start opens the database, positions the navigator and launches the
// background workers. A watch failure on the start directory is logged
// but does not prevent startup.
func (a *App) Start(startPath string) error {
	configDir, _ := os.UserConfigDir()
	if err := a.db.Open(filepath.Join(configDir, "prowl", "prowl.db")); err != nil {
		a.log.Warn("bookmarks database unavailable", zap.Error(err))
	} else {
		a.dbReady = true
		go a.db.Start()
	}

	if startPath == "" {
		startPath = a.homePath
	}
	if a.cfg.Behavior.RestoreLastPath && startPath == a.homePath {
		if last := a.loadSetting(store.SettingLastPath); last != "" && a.store.Exists(last) {
			startPath = last
		}
	}
	// A persisted toggle overrides the config file.
	if saved := a.loadSetting(store.SettingShowHidden); saved != "" {
		a.cfg.Behavior.ShowHidden = saved == "true"
	}

	navigator, err := nav.New(a.store, startPath, a.navOptions())
	if navigator == nil {
		return err
	}
	if err != nil {
		a.log.Warn("start directory is not live", zap.Error(err))
	}
	a.nav = navigator
	a.setSelection(0)
	return nil
}

func (a *App) navOptions() nav.Options {
	return nav.Options{
		List:     fs.ListOptions{HideHidden: !a.cfg.Behavior.ShowHidden},
		Watcher:  a.watcher,
		OnChange: a.onDirChanged,
		Logger:   a.log.Named("nav"),
	}
}

// ShowHidden reports the active hidden-file policy.
func (a *App) ShowHidden() bool {
	return a.cfg.Behavior.ShowHidden
}

// ToggleHidden flips the hidden-file policy. The listing policy is
// baked into every cached handle, so the navigator is rebuilt at the
// same path; the old one is torn down only once the new one stands.
func (a *App) ToggleHidden() error {
	a.cfg.Behavior.ShowHidden = !a.cfg.Behavior.ShowHidden
	path := a.nav.Current().CurrentPath

	navigator, err := nav.New(a.store, path, a.navOptions())
	if navigator == nil {
		a.cfg.Behavior.ShowHidden = !a.cfg.Behavior.ShowHidden
		return err
	}
	old := a.nav
	a.nav = navigator
	old.Close()
	a.setSelection(0)
	a.saveSetting(store.SettingShowHidden, strconv.FormatBool(a.cfg.Behavior.ShowHidden))
	if err != nil {
		a.log.Warn("directory is not live after policy change", zap.Error(err))
	}
	return nil
}

// Close tears down workers and persists the session path.
func (a *App) Close() {
	if a.nav != nil {
		a.saveSetting(store.SettingLastPath, a.nav.Current().CurrentPath)
		a.nav.Close()
	}
	a.watcher.Close()
	if a.dbReady {
		close(a.db.RequestChan)
	}
	a.db.Close()
}

// Current returns the committed cursor.
func (a *App) Current() *nav.Cursor {
	return a.nav.Current()
}

// Selection returns the selected index, or -1 when the view is empty.
func (a *App) Selection() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedIndex
}

// Select moves the selection, clamped to the current listing.
func (a *App) Select(i int) {
	a.setSelection(i)
}

func (a *App) setSelection(i int) {
	n := a.nav.ItemCount()
	if n == 0 {
		i = -1
	} else if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	a.mu.Lock()
	a.selectedIndex = i
	a.mu.Unlock()
}

// SelectedItem returns the item under the cursor, if any.
func (a *App) SelectedItem() (fs.Item, bool) {
	i := a.Selection()
	entries := a.nav.Current().Entries
	if i < 0 || i >= len(entries) {
		return fs.Item{}, false
	}
	return entries[i], true
}

// ToggleMark flips the mark on the selected item. Marked items form the
// working set for copy, cut, delete and trash.
func (a *App) ToggleMark() {
	item, ok := a.SelectedItem()
	if !ok {
		return
	}
	a.mu.Lock()
	if a.marked[item.Path] {
		delete(a.marked, item.Path)
	} else {
		a.marked[item.Path] = true
	}
	a.mu.Unlock()
}

// WorkingSet returns the marked items, falling back to the selection.
func (a *App) WorkingSet() []fs.Item {
	a.mu.Lock()
	marked := make(map[string]bool, len(a.marked))
	for p := range a.marked {
		marked[p] = true
	}
	a.mu.Unlock()

	if len(marked) > 0 {
		var items []fs.Item
		for _, e := range a.nav.Current().Entries {
			if marked[e.Path] {
				items = append(items, e)
			}
		}
		return items
	}
	if item, ok := a.SelectedItem(); ok {
		return []fs.Item{item}
	}
	return nil
}

// ClearMarks drops the whole mark set.
func (a *App) ClearMarks() {
	a.mu.Lock()
	a.marked = make(map[string]bool)
	a.mu.Unlock()
}

// MarkedCount reports how many items are marked.
func (a *App) MarkedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.marked)
}

// EnterSelected descends into the selected directory.
func (a *App) EnterSelected() error {
	item, ok := a.SelectedItem()
	if !ok {
		return nav.ErrNotFound
	}
	return a.enter(item.Path)
}

func (a *App) enter(childPath string) error {
	a.rememberView()
	err := a.nav.ToChild(childPath)
	if err != nil && !watchDegraded(err) {
		return err
	}
	a.restoreView(childPath)
	return err
}

// GoParent ascends one level, restoring any remembered selection.
func (a *App) GoParent() error {
	parent := a.nav.Current().ParentPath
	a.rememberView()
	err := a.nav.ToParent()
	if err != nil && !watchDegraded(err) {
		return err
	}
	a.restoreView(parent)
	return err
}

// Jump navigates to an arbitrary path. Input is expanded the way a
// shell would expand it before it reaches the navigator.
func (a *App) Jump(input string) error {
	target := a.ExpandPath(input)
	a.rememberView()
	err := a.nav.ToPath(target)
	if err != nil && !watchDegraded(err) {
		return err
	}
	a.restoreView(target)
	return err
}

// watchDegraded reports whether err marks a navigation that committed
// but left the new directory without live updates. The view still moved
// and must be treated as such, while the error is surfaced upward.
func watchDegraded(err error) bool {
	var werr *fs.WatchError
	return errors.As(err, &werr)
}

// Refresh re-reads the current directory and keeps the selection in
// bounds.
func (a *App) Refresh() error {
	err := a.nav.Refresh()
	a.setSelection(a.Selection())
	return err
}

// rememberView stores the departing view so a later return lands on the
// same selection. Empty views are not worth remembering.
func (a *App) rememberView() {
	c := a.nav.Current()
	if len(c.Entries) == 0 {
		return
	}
	a.history.Put(nav.HistoryEntry{
		Path:          c.CurrentPath,
		SelectedIndex: a.Selection(),
		Items:         c.Entries,
	})
}

func (a *App) restoreView(path string) {
	a.ClearMarks()
	if entry, ok := a.history.Pop(path); ok {
		a.setSelection(entry.SelectedIndex)
		return
	}
	a.setSelection(0)
}

// onMutation is the clipboard invalidation hook: drop cached listings
// for the touched directory and re-read it when it is on screen.
func (a *App) onMutation(path string) {
	if a.nav == nil {
		return
	}
	a.nav.Invalidate(path)
	if path == a.nav.Current().CurrentPath {
		if err := a.Refresh(); err != nil {
			a.log.Warn("refresh after mutation failed", zap.Error(err))
		}
	}
}

// onDirChanged runs after the navigator refreshed a changed directory.
func (a *App) onDirChanged(path string) {
	a.setSelection(a.Selection())
	select {
	case a.Events <- path:
	default:
	}
}

// Clipboard exposes the command surface to the shell.
func (a *App) Clipboard() *clipboard.Surface {
	return a.clip
}

// Find searches under the current directory, bounded by the configured
// depth.
func (a *App) Find(ctx context.Context, query string) ([]fs.Item, error) {
	f := &search.Finder{
		MaxDepth:      a.cfg.Search.DefaultDepth,
		IncludeHidden: a.cfg.Behavior.ShowHidden,
		Logger:        a.log.Named("search"),
	}
	return f.Find(ctx, a.nav.Current().CurrentPath, search.Parse(query))
}

// ExpandPath expands and normalizes a path string, handling:
// - ~ for home directory
// - Relative paths (../, ./)
// - Absolute paths
func (a *App) ExpandPath(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return a.nav.Current().CurrentPath
	}

	if strings.HasPrefix(input, "~") {
		if input == "~" {
			return a.homePath
		}
		if strings.HasPrefix(input, "~/") {
			return filepath.Clean(filepath.Join(a.homePath, input[2:]))
		}
	}

	if filepath.IsAbs(input) {
		return filepath.Clean(input)
	}
	return filepath.Clean(filepath.Join(a.nav.Current().CurrentPath, input))
}

// Bookmarks fetches the saved bookmark paths.
func (a *App) Bookmarks() ([]string, error) {
	if !a.dbReady {
		return nil, nil
	}
	a.db.RequestChan <- store.Request{Op: store.FetchBookmarks}
	resp := <-a.db.ResponseChan
	return resp.Bookmarks, resp.Err
}

// AddBookmark saves path as a bookmark.
func (a *App) AddBookmark(path string) {
	if !a.dbReady {
		return
	}
	a.db.RequestChan <- store.Request{Op: store.AddBookmark, Path: path}
	<-a.db.ResponseChan
}

// RemoveBookmark deletes a bookmark.
func (a *App) RemoveBookmark(path string) {
	if !a.dbReady {
		return
	}
	a.db.RequestChan <- store.Request{Op: store.RemoveBookmark, Path: path}
	<-a.db.ResponseChan
}

func (a *App) loadSetting(key string) string {
	if !a.dbReady {
		return ""
	}
	a.db.RequestChan <- store.Request{Op: store.FetchSettings}
	resp := <-a.db.ResponseChan
	if resp.Err != nil {
		return ""
	}
	return resp.Settings[key]
}

func (a *App) saveSetting(key, value string) {
	if !a.dbReady {
		return
	}
	a.db.RequestChan <- store.Request{Op: store.SaveSetting, Key: key, Value: value}
	<-a.db.ResponseChan
}

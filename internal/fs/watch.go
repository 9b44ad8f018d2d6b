package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Subscription is a live change-notification watch on one directory.
// Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Watcher multiplexes directory change notifications from a single
// fsnotify watcher onto per-path subscriptions, debouncing bursts of
// events into one callback.
type Watcher struct {
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	subs     map[string][]*subscription
	done     chan struct{}
	debounce time.Duration
	log      *zap.Logger
}

// NewWatcher creates a watcher. debounce <= 0 selects the 200ms default.
func NewWatcher(debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		fsw:      fsw,
		subs:     make(map[string][]*subscription),
		done:     make(chan struct{}),
		debounce: debounce,
		log:      log,
	}
	go w.run()
	return w, nil
}

// Watch subscribes onChange to changes inside path. The callback runs
// on the watcher's own goroutine chain; it must not block indefinitely.
func (w *Watcher) Watch(path string, onChange func()) (Subscription, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subs[path]) == 0 {
		if err := w.fsw.Add(path); err != nil {
			return nil, &WatchError{Path: path, Err: err}
		}
	}
	sub := &subscription{w: w, path: path, onChange: onChange}
	w.subs[path] = append(w.subs[path], sub)
	w.log.Debug("watch established", zap.String("path", path))
	return sub, nil
}

// Close shuts down the watcher and drops all subscriptions.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// run processes filesystem events with per-directory debouncing.
func (w *Watcher) run() {
	lastEvent := make(map[string]time.Time)
	pending := make(map[string]bool)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			// fsnotify reports the changed file; map it to the watched
			// directory that contains it.
			parentDir := filepath.Dir(event.Name)
			w.mu.Lock()
			if len(w.subs[parentDir]) > 0 {
				lastEvent[parentDir] = time.Now()
				pending[parentDir] = true
			} else if len(w.subs[event.Name]) > 0 {
				lastEvent[event.Name] = time.Now()
				pending[event.Name] = true
			}
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			now := time.Now()
			for dir := range pending {
				if now.Sub(lastEvent[dir]) < w.debounce {
					continue
				}
				delete(pending, dir)
				delete(lastEvent, dir)
				w.notify(dir)
			}
		}
	}
}

func (w *Watcher) notify(dir string) {
	w.mu.Lock()
	subs := make([]*subscription, len(w.subs[dir]))
	copy(subs, w.subs[dir])
	w.mu.Unlock()

	w.log.Debug("directory changed", zap.String("path", dir))
	for _, sub := range subs {
		go sub.onChange()
	}
}

type subscription struct {
	w        *Watcher
	path     string
	onChange func()
	once     sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.w.mu.Lock()
		defer s.w.mu.Unlock()

		subs := s.w.subs[s.path]
		for i, sub := range subs {
			if sub == s {
				s.w.subs[s.path] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.w.subs[s.path]) == 0 {
			delete(s.w.subs, s.path)
			// The path may already be gone; removal errors are expected.
			if err := s.w.fsw.Remove(s.path); err != nil {
				s.w.log.Debug("unwatch", zap.String("path", s.path), zap.Error(err))
			}
		}
	})
}

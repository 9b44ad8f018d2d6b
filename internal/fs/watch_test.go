package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherNotifies(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	changed := make(chan struct{}, 1)
	sub, err := w.Watch(tmpDir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Cancel()

	if err := os.WriteFile(filepath.Join(tmpDir, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification within 2s")
	}
}

func TestWatcherCancelStopsNotifications(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	changed := make(chan struct{}, 8)
	sub, err := w.Watch(tmpDir, func() { changed <- struct{}{} })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	if err := os.WriteFile(filepath.Join(tmpDir, "after.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("notification delivered after Cancel")
	case <-time.After(250 * time.Millisecond):
	}
}

func TestWatcherMissingPath(t *testing.T) {
	w, err := NewWatcher(0, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	_, err = w.Watch(filepath.Join(t.TempDir(), "nope"), func() {})
	if err == nil {
		t.Fatal("expected error watching a missing path")
	}
	if _, ok := err.(*WatchError); !ok {
		t.Fatalf("expected *WatchError, got %T", err)
	}
}

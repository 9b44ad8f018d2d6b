package fs

import "fmt"

// ListError reports that a directory could not be listed: the path is
// missing, not a directory, or unreadable.
type ListError struct {
	Path string
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list %s: %v", e.Path, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// MutationError reports a failed create/rename/delete/trash/copy/move.
// Source always names the item being mutated; Dest is set when the
// operation has a destination (rename, copy, move).
type MutationError struct {
	Op     string
	Source string
	Dest   string
	Err    error
}

func (e *MutationError) Error() string {
	if e.Dest != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Source, e.Dest, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// WatchError reports a change-notification subscription that failed to
// establish. The directory will appear static to the caller until it
// navigates away and back.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

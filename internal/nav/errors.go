package nav

import (
	"errors"
	"fmt"
)

// Navigation failure classes. Use errors.Is against these sentinels;
// the concrete error is always a *NavigationError carrying the path.
var (
	// ErrNotFound: the target is not a directory entry of the current listing.
	ErrNotFound = errors.New("not an entry of the current directory")
	// ErrNoParent: the current directory is a filesystem root.
	ErrNoParent = errors.New("current directory has no parent")
	// ErrListFailed: the target could not be listed.
	ErrListFailed = errors.New("directory could not be listed")
)

// NavigationError reports a failed navigation operation.
type NavigationError struct {
	Op   string
	Path string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

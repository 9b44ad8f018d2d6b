// Package fs implements the directory store: single-level listings,
// item mutations (create, rename, delete, trash, copy, move) and
// change-notification subscriptions for directories.
package fs

import (
	"strings"
	"time"
)

// Kind distinguishes files from folders in mutation calls.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// Item is a single directory entry. Items are immutable once produced
// by a listing; identity is Path.
type Item struct {
	Name     string
	Path     string
	IsDir    bool
	IsHidden bool
	Size     int64
	ModTime  time.Time
}

// ListOptions controls filtering and ordering of a listing. Filter and
// Sort are pluggable policy supplied by the caller. A nil Sort falls
// back to directories-first, case-insensitive name order.
type ListOptions struct {
	HideHidden bool
	Filter     func(Item) bool
	Sort       func(a, b Item) bool
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

//go:build linux

package trash

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Linux follows the freedesktop.org trash specification:
// ~/.local/share/Trash/files holds the trashed items and
// ~/.local/share/Trash/info holds one .trashinfo per item.

func trashRoot() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "Trash")
}

func isAvailable() bool {
	root := trashRoot()
	if root == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Join(root, "files"), 0o700); err != nil {
		return false
	}
	return os.MkdirAll(filepath.Join(root, "info"), 0o700) == nil
}

func moveToTrash(path string) error {
	root := trashRoot()
	filesDir := filepath.Join(root, "files")
	infoDir := filepath.Join(root, "info")
	if err := os.MkdirAll(filesDir, 0o700); err != nil {
		return fmt.Errorf("cannot create trash files directory: %w", err)
	}
	if err := os.MkdirAll(infoDir, 0o700); err != nil {
		return fmt.Errorf("cannot create trash info directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// Pick a destination name, numbering on conflict.
	baseName := filepath.Base(absPath)
	destName := baseName
	destPath := filepath.Join(filesDir, destName)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(baseName)
		destName = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(baseName, ext), counter, ext)
		destPath = filepath.Join(filesDir, destName)
	}

	infoContent := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(absPath),
		time.Now().Format("2006-01-02T15:04:05"))
	infoFile := filepath.Join(infoDir, destName+".trashinfo")
	if err := os.WriteFile(infoFile, []byte(infoContent), 0o600); err != nil {
		return fmt.Errorf("cannot create trashinfo file: %w", err)
	}

	if err := os.Rename(absPath, destPath); err != nil {
		os.Remove(infoFile)
		return fmt.Errorf("cannot move file to trash: %w", err)
	}
	return nil
}

func displayName() string {
	return "Trash"
}

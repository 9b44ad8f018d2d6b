//go:build !linux && !darwin

package trash

import "errors"

func isAvailable() bool {
	return false
}

func moveToTrash(path string) error {
	return errors.New("trash is not supported on this platform")
}

func displayName() string {
	return "Recycle Bin"
}

// Package trash moves files to the system trash instead of permanently
// deleting them.
package trash

// MoveToTrash moves a file or directory to the system trash.
func MoveToTrash(path string) error {
	return moveToTrash(path)
}

// IsAvailable reports whether trash functionality exists on this platform.
func IsAvailable() bool {
	return isAvailable()
}

// DisplayName returns the platform-appropriate name for the trash.
func DisplayName() string {
	return displayName()
}

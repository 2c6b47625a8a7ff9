package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDirectoryNotFound is returned when the scan input is missing or is not a directory.
var ErrDirectoryNotFound = errors.New("directory not found")

// ResolveRoot returns the package root for dir. Archives downloaded as zip files
// often wrap the package in one extra folder (plugin-name-1.2.3/), so when dir
// holds nothing but a single directory that directory is returned instead.
// Only one level is unwrapped.
func ResolveRoot(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, dir, err)
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

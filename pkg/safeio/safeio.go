package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// SingleSegment verifies that name is usable as exactly one directory entry
// below the working directory: non-empty, relative, and without separators.
func SingleSegment(name string) error {
	cleaned, err := CleanUserPath(name)
	if err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(name) == "", cleaned == ".":
		return errors.New("path segment cannot be empty")
	case filepath.IsAbs(name) || strings.HasPrefix(cleaned, "/"):
		return fmt.Errorf("%q must be relative", name)
	case strings.Contains(cleaned, "/"):
		return fmt.Errorf("%q must be a single path segment", name)
	}
	return nil
}

// RemoveTree deletes path and everything below it. It reports whether
// anything existed beforehand.
func RemoveTree(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(path); err != nil {
		return true, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}

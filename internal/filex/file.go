// Package filex contains small filesystem helpers for local state files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path, so a SQLite
// database or log file can be opened there. Relative paths resolve against
// the working directory. Returns the absolute path of the file.
func EnsureParentDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return abs, nil
}

// IsFileDSN reports whether a SQLite DSN refers to a file on disk rather than
// an in-memory database.
func IsFileDSN(dsn string) bool {
	if dsn == "" || dsn == ":memory:" {
		return false
	}
	return !strings.Contains(dsn, "mode=memory")
}

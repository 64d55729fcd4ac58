package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateWorkspace checks that a workspace directory is safe to use,
// creating it if missing.
func ValidateWorkspace(dir string) error {
	if dir == "" {
		return fmt.Errorf("workspace directory is empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid workspace path: %w", err)
	}

	// Prevent using root or home directory directly
	home, _ := os.UserHomeDir()
	if abs == "/" || abs == home {
		return fmt.Errorf("cannot use root or home directory as workspace")
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(abs, 0755)
		}
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("workspace path is not a directory")
	}

	return nil
}

// IsPathSafe checks if a path stays within the workspace. A sibling such as
// /work-other does not count as inside /work.
func IsPathSafe(path, workspace string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absWorkspace, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ResolveInWorkspace joins a relative path onto workspace and rejects the
// result if it escapes.
func ResolveInWorkspace(workspace, path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(workspace, path)
	}
	if !IsPathSafe(full, workspace) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return full, nil
}

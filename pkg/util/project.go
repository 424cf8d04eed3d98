package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveProjectPath turns a user-supplied directory into the absolute,
// symlink-free root of a local scan. An empty path means the working directory.
func ResolveProjectPath(projectPath string) (string, error) {
	if projectPath == "" {
		projectPath = "."
	}

	absPath, err := filepath.Abs(filepath.Clean(projectPath))
	if err != nil {
		return "", fmt.Errorf("cannot resolve path '%s': %w", projectPath, err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot access path '%s': %w", projectPath, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot access path '%s': %w", projectPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path '%s' is not a directory", projectPath)
	}

	return resolved, nil
}

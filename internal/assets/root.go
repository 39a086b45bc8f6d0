// Package assets owns the document root: where it is, which directories
// must exist in it and how files are served out of it.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ResolveRoot returns the absolute document root. An empty override selects
// the directory holding the running executable, not the working directory.
func ResolveRoot(override string) (string, error) {
	if override != "" {
		root, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve asset root %q: %w", override, err)
		}
		return root, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe), nil
}

// EnsureDirs creates each directory under root if it does not exist yet.
// Existing directories and their contents are left untouched.
func EnsureDirs(root string, dirs []string) ([]string, error) {
	created := make([]string, 0, len(dirs))

	for _, dir := range dirs {
		path := filepath.Join(root, dir)

		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return created, fmt.Errorf("asset path %s exists and is not a directory", path)
		case !errors.Is(err, fs.ErrNotExist):
			return created, fmt.Errorf("stat asset directory %s: %w", path, err)
		}

		if err := os.MkdirAll(path, 0o755); err != nil {
			return created, fmt.Errorf("create asset directory %s: %w", path, err)
		}
		created = append(created, dir)
	}

	return created, nil
}

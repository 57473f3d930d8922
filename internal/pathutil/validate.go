// Package pathutil validates output locations and keeps full paths out of
// error messages.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRunExists is returned when a run directory already holds output and
// overwriting is not allowed.
var ErrRunExists = errors.New("run directory already exists")

// RedactPath reduces a full path to .../<parent>/<basename> for error
// messages. For example "/home/user/generated/grid/scene" becomes
// ".../grid/scene".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ValidatePath checks that path resolves inside one of allowedDirs after
// cleaning and symlink resolution.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" {
		return fmt.Errorf("path validation failed: path is empty")
	}
	if len(allowedDirs) == 0 {
		return fmt.Errorf("path validation failed: no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}

	// The target may not exist yet; resolve symlinks on its deepest
	// existing ancestor.
	resolvedDir, err := resolveExistingParent(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolvedPath := filepath.Join(resolvedDir, filepath.Base(absPath))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(filepath.Clean(allowed))
		if err != nil {
			continue
		}
		allowedResolved, err := resolveExistingParent(allowedAbs)
		if err != nil {
			continue
		}
		if isSubpath(resolvedPath, allowedResolved) {
			return nil
		}
	}

	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(absPath))
}

// PrepareRunDir makes sure runDir lies inside outputDir and is free to
// write. An existing non-empty run directory is ErrRunExists unless
// overwrite is set, in which case it is removed.
func PrepareRunDir(outputDir, runDir string, overwrite bool) error {
	if err := ValidatePath(runDir, []string{outputDir}); err != nil {
		return err
	}
	if filepath.Clean(runDir) == filepath.Clean(outputDir) {
		return fmt.Errorf("run directory must be below the output directory")
	}

	entries, err := os.ReadDir(runDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("reading run directory %s: %w", RedactPath(runDir), err)
	case len(entries) == 0:
		return nil
	case !overwrite:
		return fmt.Errorf("%w: %s (set overwrite to replace it)", ErrRunExists, RedactPath(runDir))
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("removing run directory %s: %w", RedactPath(runDir), err)
	}
	return nil
}

// resolveExistingParent walks up to the deepest existing ancestor of dir,
// resolves its symlinks and re-appends the missing tail.
func resolveExistingParent(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}

	resolvedParent, err := resolveExistingParent(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath checks whether path is equal to or below base.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}

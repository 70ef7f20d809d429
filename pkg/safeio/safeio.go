package safeio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandboxkit/desktopd/pkg/pathsafety"
)

// SafeCreateDir creates dir (and any missing parents) then re-canonicalizes
// the result and verifies it still descends from workspace. If the
// post-creation canonical path escapes the workspace — because a parent
// component was swapped for a symlink between the caller's validation and
// this call — the just-created directory is removed and an error is
// returned.
func SafeCreateDir(dir, workspace string) (string, error) {
	if _, err := pathsafety.EnsureWithinWorkspace(dir, workspace); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("safeio: mkdir %q: %w", dir, err)
	}

	resolved, err := pathsafety.EnsureWithinWorkspace(dir, workspace)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("safeio: post-create containment check failed for %q: %w", dir, err)
	}

	return resolved, nil
}

// SafeCreateParentDirs creates the parent directory of dest and applies
// the same re-verification SafeCreateDir does.
func SafeCreateParentDirs(dest, workspace string) (string, error) {
	return SafeCreateDir(filepath.Dir(dest), workspace)
}

// SafeCopyFile copies src's bytes into dst under the platform contract
// described in SPEC_FULL.md §4.2: POSIX hosts refuse to follow an
// existing symlink at dst, Windows hosts refuse reparse points (checked
// both before and after the copy), and other hosts perform a plain copy.
// It returns the number of bytes written.
func SafeCopyFile(src, dst string) (int64, error) {
	return safeCopyFile(src, dst)
}

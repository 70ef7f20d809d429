package safeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeCreateDir(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, "a", "b")

	resolved, err := SafeCreateDir(dir, ws)
	require.NoError(t, err)

	info, err := os.Stat(resolved)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSafeCreateParentDirs(t *testing.T) {
	ws := t.TempDir()
	dest := filepath.Join(ws, "x", "y", "file.txt")

	_, err := SafeCreateParentDirs(dest, ws)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(ws, "x", "y"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSafeCreateDir_SymlinkedParentRejected(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.Symlink(outside, filepath.Join(ws, "linked")))

	_, err := SafeCreateDir(filepath.Join(ws, "linked", "nested"), ws)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(outside, "nested"))
	assert.True(t, os.IsNotExist(statErr), "must not have created anything outside the workspace")
}

func TestSafeCopyFile(t *testing.T) {
	ws := t.TempDir()
	src := filepath.Join(ws, "src.txt")
	dst := filepath.Join(ws, "dst.txt")

	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	n, err := SafeCopyFile(src, dst)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSafeCopyFile_RefusesExistingSymlinkDestination(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()
	src := filepath.Join(ws, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	dst := filepath.Join(ws, "dst.txt")
	target := filepath.Join(outside, "real.txt")
	require.NoError(t, os.Symlink(target, dst))

	_, err := SafeCopyFile(src, dst)
	assert.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "must not have written through the symlink")
}

package pathsafety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSubpath_RejectsTraversal(t *testing.T) {
	cases := []string{
		"../escape",
		"a/../../b",
		"/etc/passwd",
		`C:\Windows`,
		`\\server\share`,
	}
	for _, c := range cases {
		_, err := ValidateSubpath(c)
		assert.ErrorIs(t, err, ErrTraversal, "subpath %q should be rejected", c)
	}
}

func TestValidateSubpath_AcceptsPlainRelative(t *testing.T) {
	got, err := ValidateSubpath("foo/bar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("foo", "bar"), got)
}

func TestValidateSubpath_Empty(t *testing.T) {
	got, err := ValidateSubpath("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestEnsureWithinWorkspace_PlainNewPath(t *testing.T) {
	ws := t.TempDir()
	dest := filepath.Join(ws, "sub", "dir")

	resolved, err := EnsureWithinWorkspace(dest, ws)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}

func TestEnsureWithinWorkspace_PreExistingSymlinkEscapes(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(ws, "sub")
	require.NoError(t, os.Symlink(outside, link))

	dest := filepath.Join(ws, "sub", "file.txt")
	_, err := EnsureWithinWorkspace(dest, ws)
	assert.ErrorIs(t, err, ErrContainment)
}

func TestEnsureWithinWorkspace_NestedSymlinkEscapes(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(ws, "a"), 0o755))
	link := filepath.Join(ws, "a", "b")
	require.NoError(t, os.Symlink(outside, link))

	dest := filepath.Join(ws, "a", "b", "c", "d.txt")
	_, err := EnsureWithinWorkspace(dest, ws)
	assert.ErrorIs(t, err, ErrContainment)
}

func TestEnsureWithinWorkspace_OutsideWorkspaceRejected(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()

	_, err := EnsureWithinWorkspace(filepath.Join(outside, "x"), ws)
	assert.ErrorIs(t, err, ErrContainment)
}

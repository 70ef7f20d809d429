package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []ImportProgress
}

func (r *recordingSink) Publish(p ImportProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recordingSink) last() ImportProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestImport_PlainFolder(t *testing.T) {
	ws := t.TempDir()
	src := t.TempDir()

	srcA := filepath.Join(src, "a")
	require.NoError(t, os.MkdirAll(filepath.Join(srcA, "y"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcA, "x"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcA, "y", "z"), []byte("hello"), 0o644))

	sink := &recordingSink{}
	imp, err := New(ws, sink)
	require.NoError(t, err)

	result, err := imp.Import(srcA, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesCopied)
	assert.EqualValues(t, 8, result.BytesCopied)
	assert.Empty(t, result.Errors)
	assert.Equal(t, filepath.Join(ws, "a"), result.DestPath)

	gotX, err := os.ReadFile(filepath.Join(ws, "a", "x"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(gotX))

	gotZ, err := os.ReadFile(filepath.Join(ws, "a", "y", "z"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(gotZ))

	assert.Equal(t, PhaseDone, sink.last().Phase)
}

func TestImport_TraversalSubpathRejected(t *testing.T) {
	ws := t.TempDir()
	src := t.TempDir()
	srcA := filepath.Join(src, "a")
	require.NoError(t, os.MkdirAll(srcA, 0o755))

	imp, err := New(ws, nil)
	require.NoError(t, err)

	_, err = imp.Import(srcA, "../escape")
	require.Error(t, err)

	entries, err := os.ReadDir(ws)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be unchanged")
}

func TestImport_SymlinkInSourceSkipped(t *testing.T) {
	ws := t.TempDir()
	src := t.TempDir()
	srcB := filepath.Join(src, "b")
	require.NoError(t, os.MkdirAll(srcB, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcB, "real"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(srcB, "link")))

	imp, err := New(ws, nil)
	require.NoError(t, err)

	result, err := imp.Import(srcB, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesCopied)

	_, statErr := os.Lstat(filepath.Join(ws, "b", "link"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestImport_PreExistingSymlinkInWorkspaceEscapes(t *testing.T) {
	ws := t.TempDir()
	outside := t.TempDir()
	src := t.TempDir()
	srcA := filepath.Join(src, "a")
	require.NoError(t, os.MkdirAll(srcA, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcA, "f"), []byte("x"), 0o644))

	require.NoError(t, os.Symlink(outside, filepath.Join(ws, "sub")))

	imp, err := New(ws, nil)
	require.NoError(t, err)

	_, err = imp.Import(srcA, "sub")
	assert.Error(t, err)

	entries, err := os.ReadDir(outside)
	require.NoError(t, err)
	assert.Empty(t, entries, "symlink target must be unmodified")
}

func TestImport_EmptyDirectory(t *testing.T) {
	ws := t.TempDir()
	src := t.TempDir()
	empty := filepath.Join(src, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	sink := &recordingSink{}
	imp, err := New(ws, sink)
	require.NoError(t, err)

	result, err := imp.Import(empty, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesCopied)

	info, err := os.Stat(filepath.Join(ws, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, PhaseDone, sink.last().Phase)
	assert.Equal(t, 0, sink.last().Total)
}

func TestImport_LargeDirectoryThrottlesProgress(t *testing.T) {
	ws := t.TempDir()
	src := t.TempDir()
	big := filepath.Join(src, "big")
	require.NoError(t, os.MkdirAll(big, 0o755))

	const total = 1205
	for i := 0; i < total; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(big, fmt.Sprintf("f%04d", i)), []byte("x"), 0o644))
	}

	sink := &recordingSink{}
	imp, err := New(ws, sink)
	require.NoError(t, err)

	result, err := imp.Import(big, "")
	require.NoError(t, err)
	assert.Equal(t, total, result.FilesCopied)

	copyingEvents := 0
	for _, e := range sink.events {
		if e.Phase == PhaseCopying {
			copyingEvents++
		}
	}
	maxExpected := (total+9)/10 + 1
	assert.LessOrEqual(t, copyingEvents, maxExpected)
}

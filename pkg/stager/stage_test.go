package stager

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageImage_PlainCopy(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	srcFile := filepath.Join(src, "disk.raw")
	require.NoError(t, os.WriteFile(srcFile, []byte("diskbytes"), 0o644))

	staged, err := StageImage(srcFile, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "disk.raw"), staged)

	got, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "diskbytes", string(got))
}

func TestStageImage_SkipsUnchanged(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	srcFile := filepath.Join(src, "disk.raw")
	require.NoError(t, os.WriteFile(srcFile, []byte("diskbytes"), 0o644))

	staged, err := StageImage(srcFile, dest)
	require.NoError(t, err)

	before, err := os.Stat(staged)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	staged2, err := StageImage(srcFile, dest)
	require.NoError(t, err)
	assert.Equal(t, staged, staged2)

	after, err := os.Stat(staged2)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestStageImage_GzipDecompresses(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("decompressed-content"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	srcFile := filepath.Join(src, "kernel.gz")
	require.NoError(t, os.WriteFile(srcFile, buf.Bytes(), 0o644))

	staged, err := StageImage(srcFile, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "kernel"), staged)

	got, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "decompressed-content", string(got))
}

func TestStageVMResources_OptionalFieldsSkipped(t *testing.T) {
	src := t.TempDir()
	dataDir := t.TempDir()

	imgPath := filepath.Join(src, "disk.raw")
	require.NoError(t, os.WriteFile(imgPath, []byte("img"), 0o644))

	staged, err := StageVMResources(VMResourcePaths{Image: imgPath}, dataDir)
	require.NoError(t, err)
	assert.NotEmpty(t, staged.Image)
	assert.Empty(t, staged.Kernel)
	assert.Empty(t, staged.Initrd)
	assert.Empty(t, staged.Helper)
}

func TestLedger_RecordAndVerify(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "staging.db")

	l, err := OpenLedger(ledgerPath)
	require.NoError(t, err)
	defer l.Close()

	artifact := filepath.Join(dir, "disk.raw")
	require.NoError(t, os.WriteFile(artifact, []byte("content"), 0o644))

	require.NoError(t, l.Record(artifact))

	ok, err := l.Verify(artifact)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(artifact, []byte("tampered"), 0o644))
	ok, err = l.Verify(artifact)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_VerifyUnrecordedReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenLedger(filepath.Join(dir, "staging.db"))
	require.NoError(t, err)
	defer l.Close()

	artifact := filepath.Join(dir, "never-recorded")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0o644))

	ok, err := l.Verify(artifact)
	require.NoError(t, err)
	assert.False(t, ok)
}

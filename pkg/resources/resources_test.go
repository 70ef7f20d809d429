package resources

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeBinaries(t *testing.T, root string) {
	t.Helper()
	pf, err := filesForGOOS("")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, pf.WorkerBinary), []byte("fake"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, pf.ShimBinary), []byte("fake"), 0o755))
}

func TestResolve_PrefersEnvOverride(t *testing.T) {
	root := t.TempDir()
	writeFakeBinaries(t, root)
	t.Setenv(ResourceRootEnvVar, root)

	got, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolve_FallsBackToBuildDir(t *testing.T) {
	t.Setenv(ResourceRootEnvVar, "")
	buildDir := t.TempDir()
	writeFakeBinaries(t, filepath.Join(buildDir, "resources"))

	got, err := Resolve(buildDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(buildDir, "resources"), got)
}

func TestResolve_NoCandidateFails(t *testing.T) {
	t.Setenv(ResourceRootEnvVar, "")
	_, err := Resolve(t.TempDir())
	assert.Error(t, err)
}

func TestVMResourcePathsFor_ImageAlwaysSet(t *testing.T) {
	root := "/fake/root"
	paths, err := VMResourcePathsFor(root)
	require.NoError(t, err)
	assert.NotEmpty(t, paths.Image)
}

func TestFilesForGOOS_CurrentPlatformResolves(t *testing.T) {
	_, err := filesForGOOS(runtime.GOOS)
	assert.NoError(t, err)
}

func TestFilesForGOOS_UnknownPlatformErrors(t *testing.T) {
	_, err := filesForGOOS("plan9")
	assert.Error(t, err)
}

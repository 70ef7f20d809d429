package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sandboxkit/desktopd/pkg/stager"
)

// ResourceRootEnvVar overrides resource root resolution when set.
const ResourceRootEnvVar = "DESKTOPD_RESOURCE_ROOT"

// Resolve finds the resource root containing the staged sidecar binaries,
// trying in order: the environment override, the platform's application
// resource directory, and a development fallback relative to buildDir (the
// directory containing the running binary, passed by the caller since
// there is no portable "build manifest" path at runtime).
func Resolve(buildDir string) (string, error) {
	candidates := []string{}
	if override := os.Getenv(ResourceRootEnvVar); override != "" {
		candidates = append(candidates, override)
	}
	if appDir, err := platformResourceDir(); err == nil {
		candidates = append(candidates, appDir)
	}
	if buildDir != "" {
		candidates = append(candidates, filepath.Join(buildDir, "resources"))
	}

	for _, c := range candidates {
		if hasRequiredBinaries(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("resources: no candidate root under %v contains the required sidecar binaries", candidates)
}

// hasRequiredBinaries reports whether root contains both the worker
// runtime binary and the database shim binary named by the manifest.
func hasRequiredBinaries(root string) bool {
	pf, err := filesForGOOS("")
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(root, pf.WorkerBinary)); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(root, pf.ShimBinary)); err != nil {
		return false
	}
	return true
}

// platformResourceDir returns the platform's conventional per-app data
// directory, before any DESKTOPD_RESOURCE_ROOT override is applied.
func platformResourceDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "desktopd"), nil
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, "desktopd"), nil
		}
		return filepath.Join(home, "AppData", "Local", "desktopd"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "desktopd"), nil
		}
		return filepath.Join(home, ".local", "share", "desktopd"), nil
	}
}

// WorkerBinaryPath and ShimBinaryPath join root with the manifest's
// platform-appropriate filenames.
func WorkerBinaryPath(root string) (string, error) {
	pf, err := filesForGOOS("")
	if err != nil {
		return "", err
	}
	return filepath.Join(root, pf.WorkerBinary), nil
}

func ShimBinaryPath(root string) (string, error) {
	pf, err := filesForGOOS("")
	if err != nil {
		return "", err
	}
	return filepath.Join(root, pf.ShimBinary), nil
}

// VMResourcePathsFor resolves the VM image/kernel/initrd/helper locations
// under root for the running host, skipping fields the manifest leaves
// blank for that platform (e.g. Linux has no signed helper binary).
func VMResourcePathsFor(root string) (stager.VMResourcePaths, error) {
	pf, err := filesForGOOS("")
	if err != nil {
		return stager.VMResourcePaths{}, err
	}
	paths := stager.VMResourcePaths{
		Image: filepath.Join(root, pf.Image),
	}
	if pf.Kernel != "" {
		paths.Kernel = filepath.Join(root, pf.Kernel)
	}
	if pf.Initrd != "" {
		paths.Initrd = filepath.Join(root, pf.Initrd)
	}
	if pf.Helper != "" {
		paths.Helper = filepath.Join(root, pf.Helper)
	}
	return paths, nil
}

//go:build !darwin && !linux && !windows

package vmbackend

import (
	"runtime"

	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

// NewDefault reports that no backend is available on this host.
func NewDefault(dataDir string) (Backend, error) {
	return nil, vmconfig.ErrUnsupportedPlatform(runtime.GOOS)
}

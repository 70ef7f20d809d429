//go:build windows

package vmbackend

import "github.com/sandboxkit/desktopd/pkg/vmbackend/wsl"

var _ Backend = (*wsl.Backend)(nil)

// NewDefault returns the preferred backend for this host: the
// lightweight-VM subsystem backend.
func NewDefault(dataDir string) (Backend, error) {
	return wsl.New(dataDir)
}

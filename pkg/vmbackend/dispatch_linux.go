//go:build linux

package vmbackend

import "github.com/sandboxkit/desktopd/pkg/vmbackend/emulator"

var _ Backend = (*emulator.Backend)(nil)

// NewDefault returns the preferred backend for this host: the
// emulator-with-acceleration backend.
func NewDefault(dataDir string) (Backend, error) {
	return emulator.New(dataDir)
}

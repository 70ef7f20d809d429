//go:build darwin

package vmbackend

import "github.com/sandboxkit/desktopd/pkg/vmbackend/hypervisor"

var _ Backend = (*hypervisor.Backend)(nil)

// NewDefault returns the preferred backend for this host: the native
// hypervisor backend. Callers that need the emulator fallback construct
// it directly via the emulator package when Start reports the hypervisor
// is unavailable.
func NewDefault(dataDir string) (Backend, error) {
	return hypervisor.New(dataDir)
}

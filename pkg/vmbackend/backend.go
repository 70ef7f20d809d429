package vmbackend

import (
	"time"

	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

// Backend is the lifecycle contract every platform-specific VM
// implementation satisfies. Exactly one concrete variant is compiled in
// per host OS (selected at build time, not runtime); see NewDefault.
//
// Start is idempotent-refusing: calling it while already running returns
// vmconfig.ErrStartFailed. Stop is best-effort and safe to call
// repeatedly. Implementations must be safe for concurrent use from the
// supervisor's background worker and its shutdown path.
type Backend interface {
	Start(cfg *vmconfig.VMConfig) error
	Stop() error
	IsRunning() bool
	// PID returns the backend's primary child process ID, if it has one
	// worth tracking in the supervisor's PID file.
	PID() (pid int, ok bool)
	SandboxURL() string
	WaitForHealth(timeout time.Duration) error
}

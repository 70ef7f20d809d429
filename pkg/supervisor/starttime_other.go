//go:build !linux && !darwin

package supervisor

import "time"

// processStartTime has no cheap cross-platform probe outside Linux/Darwin
// (notably Windows); callers fall back to a plain liveness check and log
// that they are doing so.
func processStartTime(pid int) (time.Time, bool) {
	return time.Time{}, false
}

//go:build darwin

package hypervisor

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
	"golang.org/x/sys/unix"
)

// minMacOSMajor is the first macOS major version to ship
// Virtualization.framework's general-purpose VM APIs.
const minMacOSMajor = 13

// checkOSVersion reads kern.osproductversion via sysctl and confirms the
// host's macOS major version is at least minMacOSMajor.
func checkOSVersion() error {
	raw, err := unix.Sysctl("kern.osproductversion")
	if err != nil {
		return fmt.Errorf("hypervisor: read kern.osproductversion: %w", err)
	}
	// sysctl versions are "14.5" or similar; pad to semver's x.y.z shape.
	parts := strings.SplitN(raw, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return fmt.Errorf("hypervisor: parse os version %q: %w", raw, err)
	}
	if v.Major < minMacOSMajor {
		return fmt.Errorf("hypervisor: macOS %s is older than the minimum supported major version %d", raw, minMacOSMajor)
	}
	return nil
}

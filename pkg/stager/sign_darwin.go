//go:build darwin

package stager

import (
	"fmt"
	"os"
	"os/exec"
)

// entitlementsPlist grants the virtualization entitlement the hypervisor
// backend's helper binary needs to call Virtualization.framework. The
// helper is staged read-only application data, so it must be re-signed
// ad-hoc every time it's (re-)staged; the entitlement does not survive a
// plain file copy.
const entitlementsPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>com.apple.security.virtualization</key>
	<true/>
</dict>
</plist>
`

// signHelper re-signs the staged helper binary ad-hoc with the
// virtualization entitlement so the hypervisor backend may invoke the OS
// virtualization API (spec §4.5).
func signHelper(path string) error {
	plistPath := path + ".entitlements.plist"
	if err := os.WriteFile(plistPath, []byte(entitlementsPlist), 0o644); err != nil {
		return fmt.Errorf("stager: write entitlements: %w", err)
	}

	cmd := exec.Command("codesign", "--sign", "-", "--force",
		"--entitlements", plistPath, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("stager: codesign %q: %w: %s", path, err, out)
	}
	return nil
}

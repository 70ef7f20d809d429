package emulator

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// spawnVirtiofsd launches virtiofsd bound to a fresh socket under a
// scratch directory and returns the socket path plus the running
// command so the caller can track and kill it alongside the VM.
func spawnVirtiofsd(virtiofsdPath, workspace string) (sockPath string, cmd *exec.Cmd, err error) {
	sockDir, err := os.MkdirTemp("", "desktopd-virtiofsd-")
	if err != nil {
		return "", nil, fmt.Errorf("emulator: virtiofsd socket dir: %w", err)
	}
	sockPath = filepath.Join(sockDir, "virtiofsd.sock")

	cmd = exec.Command(virtiofsdPath,
		"--socket-path", sockPath,
		"--shared-dir", workspace,
		"--cache", "auto",
		"--sandbox", "chroot",
	)
	if err := cmd.Start(); err != nil {
		return "", nil, fmt.Errorf("emulator: start virtiofsd: %w", err)
	}
	return sockPath, cmd, nil
}

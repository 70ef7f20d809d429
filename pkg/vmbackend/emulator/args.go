package emulator

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/sandboxkit/desktopd/pkg/stager"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

// buildResult carries the extra process handles buildArgs's helpers spin
// up alongside the returned qemu argv.
type buildResult struct {
	args        []string
	virtiofsCmd *exec.Cmd
}

// binaryName returns the qemu-system binary for the host architecture.
func binaryName() string {
	switch runtime.GOARCH {
	case "arm64":
		return "qemu-system-aarch64"
	default:
		return "qemu-system-x86_64"
	}
}

func machineType() string {
	if runtime.GOARCH == "arm64" {
		return "virt"
	}
	return "q35"
}

func accelFlag() string {
	if runtime.GOOS == "linux" {
		if _, err := os.Stat("/dev/kvm"); err == nil {
			return "kvm"
		}
	}
	if runtime.GOOS == "darwin" {
		return "hvf"
	}
	return "tcg"
}

// buildArgs assembles the qemu-system command line for cfg. qmpSock is the
// path the QMP control socket will be created at; consoleLog is the file
// console output is serialized to instead of the parent's stdio.
func buildArgs(cfg *vmconfig.VMConfig, net *userNetwork, qmpSock, consoleLog string) (*buildResult, error) {
	format, err := stager.SniffFormat(cfg.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("emulator: sniff image format: %w", err)
	}

	args := []string{
		"-M", machineType(),
		"-accel", accelFlag(),
		"-cpu", "host",
		"-smp", strconv.Itoa(cfg.CPUs),
		"-m", strconv.FormatUint(cfg.MemoryBytes/(1<<20), 10),
		"-drive", fmt.Sprintf("file=%s,if=virtio,format=%s", cfg.ImagePath, format),
		"-qmp", fmt.Sprintf("unix:%s,server,nowait", qmpSock),
		"-serial", fmt.Sprintf("file:%s", consoleLog),
		"-display", "none",
		"-no-reboot",
	}
	args = append(args, net.netdevArgs()...)

	if cfg.KernelPath != "" {
		args = append(args, "-kernel", cfg.KernelPath)
	}
	if cfg.InitrdPath != "" {
		args = append(args, "-initrd", cfg.InitrdPath)
	}
	if cfg.KernelCmdline != "" {
		args = append(args, "-append", cfg.KernelCmdline)
	}

	fsArgs, virtiofsCmd, err := sharedFilesystemArgs(cfg.WorkspacePath)
	if err != nil {
		return nil, err
	}
	args = append(args, fsArgs...)

	return &buildResult{args: args, virtiofsCmd: virtiofsCmd}, nil
}

// sharedFilesystemArgs prefers a running virtiofsd daemon for the shared
// workspace, falling back to a 9p device if the helper binary isn't on
// the host (§4.7.2).
func sharedFilesystemArgs(workspace string) ([]string, *exec.Cmd, error) {
	if path, err := exec.LookPath("virtiofsd"); err == nil {
		args, cmd, err := virtiofsArgs(path, workspace)
		if err != nil {
			return nil, nil, err
		}
		return args, cmd, nil
	}
	return []string{
		"-fsdev", fmt.Sprintf("local,id=fs0,path=%s,security_model=mapped-xattr", workspace),
		"-device", "virtio-9p-pci,fsdev=fs0,mount_tag=workspace",
	}, nil, nil
}

func virtiofsArgs(virtiofsdPath, workspace string) ([]string, *exec.Cmd, error) {
	sockPath, cmd, err := spawnVirtiofsd(virtiofsdPath, workspace)
	if err != nil {
		return nil, nil, err
	}
	return []string{
		"-chardev", fmt.Sprintf("socket,id=char0,path=%s", sockPath),
		"-device", "vhost-user-fs-pci,queue-size=1024,chardev=char0,tag=workspace",
		"-object", "memory-backend-memfd,id=mem,size=1G,share=on",
		"-numa", "node,memdev=mem",
	}, cmd, nil
}

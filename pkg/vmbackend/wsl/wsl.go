//go:build windows

package wsl

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/log"
	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/vmbackend"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

const distroPrefix = "desktopd-"

// Backend is the WSL2-backed VM backend. Rather than booting a VM image
// itself, it imports cfg.ImagePath as a WSL distribution's root filesystem
// and runs the in-guest sandbox as a process inside it; WSL2 owns the
// actual lightweight VM.
type Backend struct {
	dataDir string
	logger  zerolog.Logger

	mu         sync.Mutex
	distroName string
	cmd        *exec.Cmd
	relay      *consoleRelay
	cfg        *vmconfig.VMConfig
	running    bool
}

// New constructs a wsl Backend rooted at dataDir.
func New(dataDir string) (*Backend, error) {
	return &Backend{
		dataDir: dataDir,
		logger:  log.WithBackend("wsl"),
	}, nil
}

// Start imports cfg.ImagePath as a fresh WSL distribution and launches the
// sandbox entrypoint inside it.
func (b *Backend) Start(cfg *vmconfig.VMConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return vmconfig.ErrStartFailed("wsl backend already running")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	distroName := distroPrefix + strconv.FormatInt(time.Now().UnixNano(), 36)
	installDir := filepath.Join(b.dataDir, distroName)

	timer := metrics.NewTimer()
	importCmd := exec.Command("wsl.exe", "--import", distroName, installDir, cfg.ImagePath, "--version", "2")
	if out, err := importCmd.CombinedOutput(); err != nil {
		return vmconfig.ErrStartFailed(fmt.Sprintf("wsl --import: %v: %s", err, out))
	}

	workspaceLinux, err := translatePath(cfg.WorkspacePath)
	if err != nil {
		_ = unregister(distroName)
		return vmconfig.ErrStartFailed(err.Error())
	}

	pipeName := `\\.\pipe\` + distroName + "-console"
	relay, err := newConsoleRelay(pipeName, b.logger)
	if err != nil {
		b.logger.Warn().Err(err).Msg("could not set up console relay")
	}

	entrypoint := buildEntrypointCommand(cfg, workspaceLinux)
	cmd := exec.Command("wsl.exe", "--distribution", distroName, "--exec", "/bin/sh", "-c", entrypoint)
	if relay != nil {
		if conn, dialErr := relay.dial(pipeName); dialErr == nil {
			cmd.Stdout = conn
			cmd.Stderr = conn
		}
	}

	if err := cmd.Start(); err != nil {
		_ = unregister(distroName)
		return vmconfig.ErrStartFailed(fmt.Sprintf("launch wsl distribution: %v", err))
	}
	timer.ObserveDurationVec(metrics.VMStartDuration, "wsl")

	b.distroName = distroName
	b.cmd = cmd
	b.relay = relay
	b.cfg = cfg
	b.running = true
	metrics.VMRunning.WithLabelValues("wsl").Set(1)

	go b.monitor()

	b.logger.Info().Str("distro", distroName).Msg("wsl backend started")
	return nil
}

// buildEntrypointCommand shell-quotes the sandbox entrypoint invocation so
// env values and paths containing spaces survive the wsl.exe -c boundary.
func buildEntrypointCommand(cfg *vmconfig.VMConfig, workspaceLinux string) string {
	env := []string{
		fmt.Sprintf("PORT=%d", cfg.SandboxPort),
		fmt.Sprintf("WORKSPACE_BASE=%s", workspaceLinux),
	}
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	args := append(env, "/usr/local/bin/desktopd-sandbox")
	return shellquote.Join(args...)
}

func (b *Backend) monitor() {
	b.mu.Lock()
	cmd := b.cmd
	distroName := b.distroName
	b.mu.Unlock()
	if cmd == nil {
		return
	}
	err := cmd.Wait()

	b.mu.Lock()
	b.running = false
	if b.relay != nil {
		_ = b.relay.Close()
	}
	b.mu.Unlock()
	metrics.VMRunning.WithLabelValues("wsl").Set(0)
	_ = unregister(distroName)

	if err != nil {
		b.logger.Warn().Err(err).Msg("wsl sandbox process exited")
	} else {
		b.logger.Info().Msg("wsl sandbox process exited cleanly")
	}
}

// Stop kills the sandbox process and unregisters the distribution. Safe to
// call repeatedly.
func (b *Backend) Stop() error {
	b.mu.Lock()
	if !b.running || b.cmd == nil || b.cmd.Process == nil {
		b.mu.Unlock()
		return nil
	}
	cmd := b.cmd
	distroName := b.distroName
	b.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil {
		return vmconfig.ErrStopFailed(err.Error())
	}
	return unregister(distroName)
}

func unregister(distroName string) error {
	if distroName == "" {
		return nil
	}
	return exec.Command("wsl.exe", "--unregister", distroName).Run()
}

// IsRunning reports whether the sandbox process is alive.
func (b *Backend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// PID returns the wsl.exe launcher process's PID.
func (b *Backend) PID() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return 0, false
	}
	return b.cmd.Process.Pid, true
}

// SandboxURL returns the HTTP URL the in-guest sandbox server is reachable
// at. WSL2 shares the host's loopback address space for this purpose.
func (b *Backend) SandboxURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg == nil {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d", b.cfg.SandboxPort)
}

// WaitForHealth probes the sandbox port on a fixed interval.
func (b *Backend) WaitForHealth(timeout time.Duration) error {
	b.mu.Lock()
	port := 0
	if b.cfg != nil {
		port = b.cfg.SandboxPort
	}
	b.mu.Unlock()
	return vmbackend.ProbeHealth("wsl", port, timeout, false)
}

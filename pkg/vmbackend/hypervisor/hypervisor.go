package hypervisor

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/log"
	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/vmbackend"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

// Backend is the native-hypervisor VM backend. It spawns the staged,
// ad-hoc-signed helper binary (built from this module's
// cmd/desktopd-vmhelper, which links Code-Hex/vz directly) as a child
// process and supervises it; this process never calls
// Virtualization.framework itself, since that API requires the calling
// binary to carry the virtualization entitlement applied at staging time
// (pkg/stager's sign_darwin.go), not merely be launched by a signed
// parent.
type Backend struct {
	dataDir string
	logger  zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	cfg     *vmconfig.VMConfig
	running bool
}

// New constructs a hypervisor Backend rooted at dataDir.
func New(dataDir string) (*Backend, error) {
	return &Backend{
		dataDir: dataDir,
		logger:  log.WithBackend("hypervisor"),
	}, nil
}

// Start launches the helper binary with flags derived from cfg. It
// refuses to run a second time while already running, and returns
// StartFailed if the host's macOS version is too old or the helper fails
// to launch. It does not fall back to the emulator backend.
func (b *Backend) Start(cfg *vmconfig.VMConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return vmconfig.ErrStartFailed("hypervisor backend already running")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkOSVersion(); err != nil {
		return vmconfig.ErrStartFailed(err.Error())
	}
	if cfg.HelperPath == "" {
		return vmconfig.ErrStartFailed("no staged helper binary configured")
	}

	args := buildHelperArgs(cfg)
	cmd := exec.Command(cfg.HelperPath, args...)
	cmd.Stdout = &logWriter{logger: b.logger, level: "info"}
	cmd.Stderr = &logWriter{logger: b.logger, level: "error"}

	timer := metrics.NewTimer()
	if err := cmd.Start(); err != nil {
		return vmconfig.ErrStartFailed(fmt.Sprintf("launch helper: %v", err))
	}
	timer.ObserveDurationVec(metrics.VMStartDuration, "hypervisor")

	b.cmd = cmd
	b.cfg = cfg
	b.running = true
	metrics.VMRunning.WithLabelValues("hypervisor").Set(1)

	go b.monitor()

	b.logger.Info().Int("pid", cmd.Process.Pid).Msg("hypervisor helper started")
	return nil
}

func (b *Backend) monitor() {
	b.mu.Lock()
	cmd := b.cmd
	b.mu.Unlock()
	if cmd == nil {
		return
	}
	err := cmd.Wait()

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	metrics.VMRunning.WithLabelValues("hypervisor").Set(0)

	if err != nil {
		b.logger.Warn().Err(err).Msg("hypervisor helper exited")
	} else {
		b.logger.Info().Msg("hypervisor helper exited cleanly")
	}
}

// Stop terminates the helper process. Safe to call repeatedly.
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	if err := b.cmd.Process.Kill(); err != nil {
		return vmconfig.ErrStopFailed(err.Error())
	}
	b.running = false
	metrics.VMRunning.WithLabelValues("hypervisor").Set(0)
	return nil
}

// IsRunning reports whether the helper process is alive.
func (b *Backend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// PID returns the helper process's PID.
func (b *Backend) PID() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return 0, false
	}
	return b.cmd.Process.Pid, true
}

// SandboxURL returns the HTTP URL the in-guest sandbox server is
// reachable at once the helper has bridged the vsock port to a host TCP
// port.
func (b *Backend) SandboxURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg == nil {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d", b.cfg.SandboxPort)
}

// WaitForHealth probes the sandbox port with exponential backoff, per
// spec §4.6's macOS-specific retry policy.
func (b *Backend) WaitForHealth(timeout time.Duration) error {
	b.mu.Lock()
	port := 0
	if b.cfg != nil {
		port = b.cfg.SandboxPort
	}
	b.mu.Unlock()
	return vmbackend.ProbeHealth("hypervisor", port, timeout, true)
}

func buildHelperArgs(cfg *vmconfig.VMConfig) []string {
	args := []string{
		"--disk", cfg.ImagePath,
		"--cpus", strconv.Itoa(cfg.CPUs),
		"--memory-mib", strconv.FormatUint(cfg.MemoryBytes/(1<<20), 10),
		"--share", fmt.Sprintf("workspace:%s", cfg.WorkspacePath),
		"--port-forward", fmt.Sprintf("%d:%d", cfg.SandboxPort, cfg.SandboxPort),
	}
	if cfg.KernelPath != "" {
		args = append(args, "--kernel", cfg.KernelPath)
	}
	if cfg.InitrdPath != "" {
		args = append(args, "--initrd", cfg.InitrdPath)
	}
	if cfg.KernelCmdline != "" {
		args = append(args, "--cmdline", cfg.KernelCmdline)
	}
	for k, v := range cfg.Env {
		args = append(args, "--env", fmt.Sprintf("%s=%s", k, v))
	}
	return args
}

type logWriter struct {
	logger zerolog.Logger
	level  string
}

func (w *logWriter) Write(p []byte) (int, error) {
	switch w.level {
	case "error":
		w.logger.Error().Msg(string(p))
	default:
		w.logger.Info().Msg(string(p))
	}
	return len(p), nil
}

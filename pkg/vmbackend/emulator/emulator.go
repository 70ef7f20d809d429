package emulator

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/log"
	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/vmbackend"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

// Backend is the QEMU-based VM backend used on Linux hosts; on macOS it is
// only used when a caller constructs it directly. Unlike
// the hypervisor backend it has no entitlement requirement, so it runs
// qemu-system directly rather than through a separately-signed helper.
type Backend struct {
	dataDir string
	logger  zerolog.Logger

	mu          sync.Mutex
	cmd         *exec.Cmd
	virtiofsCmd *exec.Cmd
	net         *userNetwork
	qmp         *qmpClient
	tailer      *consoleTailer
	cfg         *vmconfig.VMConfig
	consoleLog  string
	running     bool
}

// New constructs an emulator Backend rooted at dataDir, where the
// backend's scratch sockets and console log are written.
func New(dataDir string) (*Backend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, vmconfig.Io(err)
	}
	return &Backend{
		dataDir: dataDir,
		logger:  log.WithBackend("emulator"),
	}, nil
}

// Start assembles the qemu-system command line for cfg, wires up the
// gvisor-tap-vsock user network and (when available) a virtiofsd shared
// filesystem daemon, and launches qemu as a child process.
func (b *Backend) Start(cfg *vmconfig.VMConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return vmconfig.ErrStartFailed("emulator backend already running")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	binary, err := exec.LookPath(binaryName())
	if err != nil {
		return vmconfig.ErrStartFailed(fmt.Sprintf("%s not found on PATH: %v", binaryName(), err))
	}

	net, err := newUserNetwork(b.dataDir, cfg.SandboxPort, cfg.SandboxPort)
	if err != nil {
		return vmconfig.ErrStartFailed(err.Error())
	}

	qmpSock := filepath.Join(b.dataDir, "qmp.sock")
	os.Remove(qmpSock)
	consoleLog := filepath.Join(b.dataDir, "console.log")

	built, err := buildArgs(cfg, net, qmpSock, consoleLog)
	if err != nil {
		net.Close()
		return vmconfig.ErrStartFailed(err.Error())
	}

	cmd := exec.Command(binary, built.args...)
	cmd.Stdout = &logWriter{logger: b.logger}
	cmd.Stderr = &logWriter{logger: b.logger}

	timer := metrics.NewTimer()
	if err := cmd.Start(); err != nil {
		net.Close()
		if built.virtiofsCmd != nil {
			_ = built.virtiofsCmd.Process.Kill()
		}
		return vmconfig.ErrStartFailed(fmt.Sprintf("launch %s: %v", binaryName(), err))
	}
	timer.ObserveDurationVec(metrics.VMStartDuration, "emulator")

	qmp, err := connectQMPWithRetry(qmpSock, 5*time.Second)
	if err != nil {
		b.logger.Warn().Err(err).Msg("qmp handshake failed, falling back to process-liveness stop")
	}

	tailer, err := tailConsole(consoleLog, b.logger)
	if err != nil {
		b.logger.Warn().Err(err).Msg("could not tail console log")
	}

	b.cmd = cmd
	b.virtiofsCmd = built.virtiofsCmd
	b.net = net
	b.qmp = qmp
	b.tailer = tailer
	b.cfg = cfg
	b.consoleLog = consoleLog
	b.running = true
	metrics.VMRunning.WithLabelValues("emulator").Set(1)

	go b.monitor()

	b.logger.Info().Int("pid", cmd.Process.Pid).Msg("emulator started")
	return nil
}

// connectQMPWithRetry polls for the QMP unix socket to appear, since qemu
// creates it asynchronously after the process starts.
func connectQMPWithRetry(sockPath string, timeout time.Duration) (*qmpClient, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if c, err := dialQMP(sockPath); err == nil {
			return c, nil
		} else {
			lastErr = err
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, lastErr
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
	if b.virtiofsCmd != nil && b.virtiofsCmd.Process != nil {
		_ = b.virtiofsCmd.Process.Kill()
	}
	if b.net != nil {
		_ = b.net.Close()
	}
	if b.qmp != nil {
		_ = b.qmp.close()
	}
	if b.tailer != nil {
		_ = b.tailer.Close()
	}
	b.mu.Unlock()
	metrics.VMRunning.WithLabelValues("emulator").Set(0)

	if err != nil {
		b.logger.Warn().Err(err).Msg("emulator exited")
	} else {
		b.logger.Info().Msg("emulator exited cleanly")
	}
}

// Stop requests a cooperative shutdown over QMP, falling back to killing
// the process if no QMP connection is available or the guest doesn't
// power down within the grace period.
func (b *Backend) Stop() error {
	b.mu.Lock()
	if !b.running || b.cmd == nil || b.cmd.Process == nil {
		b.mu.Unlock()
		return nil
	}
	cmd := b.cmd
	qmp := b.qmp
	b.mu.Unlock()

	if qmp != nil {
		if err := qmp.powerdown(); err == nil {
			done := make(chan struct{})
			go func() {
				_ = cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-time.After(10 * time.Second):
				b.logger.Warn().Msg("emulator did not power down cooperatively, forcing quit")
			}
			_ = qmp.quit()
		}
	}

	if err := cmd.Process.Kill(); err != nil {
		return vmconfig.ErrStopFailed(err.Error())
	}
	return nil
}

// IsRunning reports whether the qemu process is alive.
func (b *Backend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// PID returns the qemu process's PID.
func (b *Backend) PID() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd == nil || b.cmd.Process == nil {
		return 0, false
	}
	return b.cmd.Process.Pid, true
}

// SandboxURL returns the HTTP URL the in-guest sandbox server is
// reachable at via the gvisor-tap-vsock port forward.
func (b *Backend) SandboxURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg == nil {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d", b.cfg.SandboxPort)
}

// WaitForHealth probes the sandbox port on a fixed interval. Unlike the
// hypervisor backend, the emulator backend does not apply macOS's
// exponential backoff, since qemu boots are not entitlement-gated and
// a fixed probe interval is good enough on Linux.
func (b *Backend) WaitForHealth(timeout time.Duration) error {
	b.mu.Lock()
	port := 0
	if b.cfg != nil {
		port = b.cfg.SandboxPort
	}
	b.mu.Unlock()
	return vmbackend.ProbeHealth("emulator", port, timeout, false)
}

type logWriter struct {
	logger zerolog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Debug().Msg(string(p))
	return len(p), nil
}

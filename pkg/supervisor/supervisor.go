package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/moby/sys/signal"
	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/log"
	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/resources"
	"github.com/sandboxkit/desktopd/pkg/stager"
	"github.com/sandboxkit/desktopd/pkg/vmbackend"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

const (
	sidecarHealthRetries  = 10
	sidecarHealthInterval = 500 * time.Millisecond
	vmHealthTimeout       = 120 * time.Second
	shutdownGrace         = 2 * time.Second
)

// Supervisor owns the full lifecycle described in §4.8: resolving the
// resource root, reaping orphans left by an unclean previous run, staging
// and spawning the sidecar processes, and bringing up the sandbox VM on a
// background worker after the worker runtime's health probe.
type Supervisor struct {
	resourceRoot string
	dataDir      string
	logger       zerolog.Logger

	mu       sync.Mutex
	children []*trackedChild
	sandbox  vmbackend.Backend

	pidFilePath string
}

type trackedChild struct {
	name string
	cmd  *exec.Cmd
}

// New constructs a Supervisor rooted at dataDir (the application data
// directory, e.g. the one cmd/desktopd resolves from --data-dir or
// ~/.desktopd). buildDir is passed through to resources.Resolve as the
// development-fallback search root.
func New(dataDir, buildDir string) (*Supervisor, error) {
	root, err := resources.Resolve(buildDir)
	if err != nil {
		return nil, fmt.Errorf("supervisor: resolve resource root: %w", err)
	}
	for _, sub := range []string{"bin", "vm", "d1", "durable_objects", "workspace"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("supervisor: create data dir: %w", err)
		}
	}
	return &Supervisor{
		resourceRoot: root,
		dataDir:      dataDir,
		logger:       log.WithComponent("supervisor"),
		pidFilePath:  filepath.Join(dataDir, pidFileName),
	}, nil
}

// Start runs the nine-step startup sequence. A nil, non-error return means
// the sidecars are up and the VM is being brought up in the background;
// the caller does not block on VM readiness.
func (s *Supervisor) Start(ctx context.Context) error {
	// (1) Honor the autostart-disable flag.
	if autostartDisabled() {
		s.logger.Info().Msg("autostart disabled, skipping service and VM startup")
		return nil
	}

	// (2)/(3) Resource root and data dir are already resolved by New.

	// (4) Reap stale orphans from a previous unclean shutdown.
	_, statErr := os.Stat(s.pidFilePath)
	hadPIDFile := statErr == nil
	if err := reapStaleOrphans(s.pidFilePath, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reap stale orphans, continuing")
	} else if hadPIDFile {
		metrics.SupervisorOrphansReapedTotal.Inc()
	}

	specs, err := s.sidecarSpecs()
	if err != nil {
		return fmt.Errorf("supervisor: build sidecar specs: %w", err)
	}

	// (5)/(6) Stage and spawn every sidecar.
	for _, spec := range specs {
		binPath, err := stageSidecar(spec, s.dataDir)
		if err != nil {
			s.logger.Error().Err(err).Str("sidecar", spec.Name).Msg("failed to stage sidecar, skipping")
			continue
		}
		cmd, err := spawnSidecar(ctx, binPath, spec, s.logger)
		if err != nil {
			s.logger.Error().Err(err).Str("sidecar", spec.Name).Msg("failed to spawn sidecar, skipping")
			continue
		}
		s.mu.Lock()
		s.children = append(s.children, &trackedChild{name: spec.Name, cmd: cmd})
		s.mu.Unlock()
		metrics.SupervisorSidecarsRunning.Set(float64(len(s.children)))
	}

	// (7) Health-probe the worker runtime.
	if workerURL := s.workerHealthURL(); workerURL != "" {
		addr := fmt.Sprintf("127.0.0.1:%d", envIntOr(EnvControlplanePort, vmconfig.DefaultSandboxPort))
		if err := probeSidecarHealth(ctx, workerURL, addr, sidecarHealthRetries, sidecarHealthInterval); err != nil {
			s.logger.Error().Err(err).Msg("worker runtime failed to become healthy")
		}
	}

	// (8) Write the PID file with every sidecar's PID.
	if err := s.writeCurrentPIDs(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write pid file")
	}

	// (9) Stage and start the VM backend on a background worker.
	go s.startSandboxVM(ctx)

	return nil
}

// startSandboxVM runs step 9: it never blocks Start, and any failure is
// logged and leaves sandbox-dependent features unavailable rather than
// failing the whole supervisor.
func (s *Supervisor) startSandboxVM(ctx context.Context) {
	paths, err := resources.VMResourcePathsFor(s.resourceRoot)
	if err != nil {
		s.logger.Error().Err(err).Msg("sandbox vm: resolve resource paths")
		return
	}
	staged, err := stager.StageVMResources(paths, s.dataDir)
	if err != nil {
		s.logger.Error().Err(err).Msg("sandbox vm: stage resources")
		return
	}

	backend, err := vmbackend.NewDefault(s.dataDir)
	if err != nil {
		s.logger.Error().Err(err).Msg("sandbox vm: no backend available on this host")
		return
	}

	cfg := vmconfig.New(staged.Image, filepath.Join(s.dataDir, "workspace")).
		WithSandboxPort(envIntOr(EnvSandboxPort, vmconfig.DefaultSandboxPort))
	if staged.Kernel != "" || staged.Initrd != "" {
		cfg.WithKernel(staged.Kernel, staged.Initrd, "")
	}
	if staged.Helper != "" {
		cfg.WithHelper(staged.Helper)
	}
	cfg.ClampMemory()

	if err := backend.Start(cfg); err != nil {
		s.logger.Error().Err(err).Msg("sandbox vm: start failed")
		return
	}

	if err := backend.WaitForHealth(vmHealthTimeout); err != nil {
		s.logger.Error().Err(err).Msg("sandbox vm: never became healthy")
		return
	}

	s.mu.Lock()
	s.sandbox = backend
	s.mu.Unlock()

	if err := s.writeCurrentPIDs(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to rewrite pid file with vm pid")
	}
	s.logger.Info().Str("url", backend.SandboxURL()).Msg("sandbox vm healthy")
}

// Shutdown runs the three-step idempotent shutdown sequence. It is safe
// to call more than once and from the interrupt handler, the app-exit
// event, or the Supervisor's own destructor.
func (s *Supervisor) Shutdown() error {
	s.mu.Lock()
	sandbox := s.sandbox
	s.sandbox = nil
	children := s.children
	s.children = nil
	s.mu.Unlock()

	// (1) Stop the VM, best-effort.
	if sandbox != nil {
		if err := sandbox.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("sandbox vm stop failed")
		}
	}

	// (2) Cooperative terminate, grace window, then force-kill survivors.
	term, haveTerm := signal.SignalMap["TERM"]
	for _, c := range children {
		if haveTerm {
			_ = c.cmd.Process.Signal(term)
		} else {
			_ = c.cmd.Process.Signal(os.Interrupt)
		}
	}
	time.Sleep(shutdownGrace)
	for _, c := range children {
		if isAlive(c.cmd.Process.Pid) {
			_ = c.cmd.Process.Kill()
		}
		_, _ = c.cmd.Process.Wait()
	}
	metrics.SupervisorSidecarsRunning.Set(0)

	// (3) Delete the PID file.
	return deletePIDFile(s.pidFilePath)
}

// writeCurrentPIDs rewrites the PID file with every tracked sidecar PID
// plus the sandbox VM's PID, if it has one worth tracking.
func (s *Supervisor) writeCurrentPIDs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pids := make([]int, 0, len(s.children)+1)
	for _, c := range s.children {
		if c.cmd.Process != nil {
			pids = append(pids, c.cmd.Process.Pid)
		}
	}
	if s.sandbox != nil {
		if pid, ok := s.sandbox.PID(); ok {
			pids = append(pids, pid)
		}
	}
	return writePIDFile(s.pidFilePath, pids)
}

// workerHealthURL returns the URL the worker runtime sidecar is probed
// at, or empty if no worker sidecar was staged and spawned.
func (s *Supervisor) workerHealthURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.children {
		if c.name == "worker" {
			port := envIntOr(EnvControlplanePort, vmconfig.DefaultSandboxPort)
			return fmt.Sprintf("http://127.0.0.1:%d/health", port)
		}
	}
	return ""
}

// sidecarSpecs builds the set of sidecars to stage and spawn: the worker
// runtime and the database shim, located under the resolved resource root.
func (s *Supervisor) sidecarSpecs() ([]sidecarSpec, error) {
	workerSrc, err := resources.WorkerBinaryPath(s.resourceRoot)
	if err != nil {
		return nil, err
	}
	shimSrc, err := resources.ShimBinaryPath(s.resourceRoot)
	if err != nil {
		return nil, err
	}

	controlplanePort := envIntOr(EnvControlplanePort, vmconfig.DefaultSandboxPort)
	frontendPort := envIntOr(EnvFrontendPort, vmconfig.DefaultSandboxPort+1)

	env := []string{
		fmt.Sprintf("PORT=%d", controlplanePort),
		fmt.Sprintf("FRONTEND_PORT=%d", frontendPort),
	}
	if v := os.Getenv(EnvSandboxURL); v != "" {
		env = append(env, "SANDBOX_URL="+v)
	}
	if v := os.Getenv(EnvSandboxInternalTok); v != "" {
		env = append(env, "SANDBOX_INTERNAL_TOKEN="+v)
	}
	if v := os.Getenv(EnvInternalAPIToken); v != "" {
		env = append(env, "INTERNAL_API_TOKEN="+v)
	}
	if v := os.Getenv(EnvDevAuth); v != "" {
		env = append(env, "DEV_AUTH="+v)
	}
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		env = append(env, "ALLOWED_ORIGINS="+v)
	}
	if v := os.Getenv(EnvFrontendURL); v != "" {
		env = append(env, "FRONTEND_URL="+v)
	}

	dbshimEnv := []string{fmt.Sprintf("DB_PATH=%s", filepath.Join(s.dataDir, "d1", "controlplane.sqlite"))}
	if v := os.Getenv(EnvDBShimDebug); v != "" {
		dbshimEnv = append(dbshimEnv, "DB_SHIM_DEBUG="+v)
	}

	return []sidecarSpec{
		{
			Name:       "worker",
			SourcePath: workerSrc,
			Env:        env,
			HealthURL:  fmt.Sprintf("http://127.0.0.1:%d/health", controlplanePort),
		},
		{
			Name:       "dbshim",
			SourcePath: shimSrc,
			Env:        dbshimEnv,
		},
	}, nil
}

package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/health"
	"github.com/sandboxkit/desktopd/pkg/stager"
)

// sidecarSpec names a sidecar binary to stage and spawn: its bundled
// source path under the resolved resource root, the arguments to launch
// it with, and (for the worker runtime) the health endpoint the
// supervisor probes before considering startup complete.
type sidecarSpec struct {
	Name       string
	SourcePath string
	Args       []string
	Env        []string
	HealthURL  string // empty if this sidecar has no health endpoint to probe
}

// stageSidecar cache-aware-copies spec's binary into dataDir/bin and sets
// its POSIX executable bit (a no-op on platforms without one).
func stageSidecar(spec sidecarSpec, dataDir string) (string, error) {
	destDir := filepath.Join(dataDir, "bin")
	staged, err := stager.StageImage(spec.SourcePath, destDir)
	if err != nil {
		return "", fmt.Errorf("supervisor: stage sidecar %s: %w", spec.Name, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(staged, 0o755); err != nil {
			return "", fmt.Errorf("supervisor: chmod sidecar %s: %w", spec.Name, err)
		}
	}
	return staged, nil
}

// spawnSidecar starts the staged binary and returns the running command.
// The child's own stdout/stderr are piped through logger rather than
// inherited, matching the VM backends' logWriter convention.
func spawnSidecar(ctx context.Context, binPath string, spec sidecarSpec, logger zerolog.Logger) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, binPath, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = &sidecarLogWriter{logger: logger, name: spec.Name}
	cmd.Stderr = &sidecarLogWriter{logger: logger, name: spec.Name}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: spawn sidecar %s: %w", spec.Name, err)
	}
	return cmd, nil
}

type sidecarLogWriter struct {
	logger zerolog.Logger
	name   string
}

func (w *sidecarLogWriter) Write(p []byte) (int, error) {
	w.logger.Debug().Str("sidecar", w.name).Msg(string(p))
	return len(p), nil
}

// probeSidecarHealth performs a TCP connect followed by a minimal GET
// against url, retrying up to maxRetries times spaced retryInterval apart.
func probeSidecarHealth(ctx context.Context, url string, addr string, maxRetries int, retryInterval time.Duration) error {
	tcp := health.NewTCPChecker(addr)
	http := health.NewHTTPChecker(url)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if res := tcp.Check(ctx); !res.Healthy {
			lastErr = fmt.Errorf("supervisor: tcp probe: %s", res.Message)
		} else if res := http.Check(ctx); !res.Healthy {
			lastErr = fmt.Errorf("supervisor: http probe: %s", res.Message)
		} else {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return fmt.Errorf("supervisor: worker runtime never became healthy: %w", lastErr)
}

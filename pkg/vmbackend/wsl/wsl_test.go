//go:build windows

package wsl

import (
	"strings"
	"testing"

	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

func TestBuildEntrypointCommand_IncludesPortAndWorkspace(t *testing.T) {
	cfg := vmconfig.New(`C:\images\base.tar`, `C:\ws`).WithSandboxPort(9000)
	cmd := buildEntrypointCommand(cfg, "/mnt/c/ws")
	if !strings.Contains(cmd, "PORT=9000") {
		t.Errorf("missing PORT: %s", cmd)
	}
	if !strings.Contains(cmd, "WORKSPACE_BASE=/mnt/c/ws") {
		t.Errorf("missing WORKSPACE_BASE: %s", cmd)
	}
	if !strings.Contains(cmd, "desktopd-sandbox") {
		t.Errorf("missing entrypoint: %s", cmd)
	}
}

func TestStart_RefusesWhenAlreadyRunning(t *testing.T) {
	b := &Backend{running: true}
	cfg := vmconfig.New(`C:\images\base.tar`, `C:\ws`)
	if err := b.Start(cfg); err == nil {
		t.Error("expected error when already running")
	}
}

func TestStop_NoopWhenNotRunning(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Stop(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsRunning_FalseInitially(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if b.IsRunning() {
		t.Error("expected not running")
	}
}

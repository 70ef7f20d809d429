package supervisor

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestReapStaleOrphans_NoPIDFileIsNoop(t *testing.T) {
	if err := reapStaleOrphans(filepath.Join(t.TempDir(), "missing.pid"), discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReapStaleOrphans_DeletesFileEvenWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desktop-services.pid")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := reapStaleOrphans(path, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected empty pid file to be deleted, stat err = %v", err)
	}
}

func TestReapStaleOrphans_KillsLiveOrphan(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot spawn test process: %v", err)
	}
	// The sleeper is this test's own child, so it stays a zombie (and
	// answers signal 0) until waited on; reap it as soon as it exits.
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	defer func() {
		_ = cmd.Process.Kill()
		<-exited
	}()

	path := filepath.Join(t.TempDir(), "desktop-services.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := reapStaleOrphans(path, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected orphan pid %d to be reaped", cmd.Process.Pid)
	}
}

func TestIsAlive_FalseForUnlikelyPID(t *testing.T) {
	if isAlive(999999) {
		t.Fatalf("expected pid 999999 to be reported dead")
	}
}

package hypervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

func TestBuildHelperArgs_IncludesRequiredFlags(t *testing.T) {
	cfg := vmconfig.New("/data/vm/disk.img", "/ws").WithCPUs(4).WithMemoryBytes(4 << 30)
	args := buildHelperArgs(cfg)

	assert.Contains(t, args, "--disk")
	assert.Contains(t, args, "/data/vm/disk.img")
	assert.Contains(t, args, "--cpus")
	assert.Contains(t, args, "4")
	assert.Contains(t, args, "--memory-mib")
	assert.Contains(t, args, "4096")
}

func TestBuildHelperArgs_OmitsUnsetKernelFields(t *testing.T) {
	cfg := vmconfig.New("/data/vm/disk.img", "/ws")
	args := buildHelperArgs(cfg)

	assert.NotContains(t, args, "--kernel")
	assert.NotContains(t, args, "--initrd")
}

func TestStart_RefusesWhenAlreadyRunning(t *testing.T) {
	b := &Backend{running: true}
	cfg := vmconfig.New("/data/vm/disk.img", "/ws")
	err := b.Start(cfg)
	assert.Error(t, err)
}

func TestStop_NoopWhenNotRunning(t *testing.T) {
	b := &Backend{}
	assert.NoError(t, b.Stop())
	assert.NoError(t, b.Stop())
}

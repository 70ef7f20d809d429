package vmconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New("/data/vm/disk.img", "/ws")
	assert.Equal(t, DefaultCPUs, c.CPUs)
	assert.EqualValues(t, DefaultMemoryBytes, c.MemoryBytes)
	assert.Equal(t, DefaultSandboxPort, c.SandboxPort)
	assert.NotNil(t, c.Env)
}

func TestChainedSetters(t *testing.T) {
	c := New("/data/vm/disk.img", "/ws").
		WithCPUs(4).
		WithMemoryBytes(4 << 30).
		WithSandboxPort(9090).
		WithEnv("FOO", "bar").
		WithKernel("/data/vm/kernel", "/data/vm/initrd", "console=hvc0").
		WithHelper("/data/vm/helper")

	assert.Equal(t, 4, c.CPUs)
	assert.EqualValues(t, 4<<30, c.MemoryBytes)
	assert.Equal(t, 9090, c.SandboxPort)
	assert.Equal(t, "bar", c.Env["FOO"])
	assert.Equal(t, "/data/vm/kernel", c.KernelPath)
	assert.Equal(t, "/data/vm/initrd", c.InitrdPath)
	assert.Equal(t, "console=hvc0", c.KernelCmdline)
	assert.Equal(t, "/data/vm/helper", c.HelperPath)
}

func TestClampMemory_RaisesTooSmall(t *testing.T) {
	c := New("/img", "/ws").WithMemoryBytes(1024)
	c.ClampMemory()
	assert.GreaterOrEqual(t, c.MemoryBytes, uint64(minMemoryBytes))
}

func TestValidate_FillsZeroValues(t *testing.T) {
	c := &VMConfig{ImagePath: "/img", WorkspacePath: "/ws"}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultCPUs, c.CPUs)
	assert.EqualValues(t, DefaultMemoryBytes, c.MemoryBytes)
	assert.Equal(t, DefaultSandboxPort, c.SandboxPort)
}

func TestValidate_MissingImage(t *testing.T) {
	c := &VMConfig{WorkspacePath: "/ws"}
	err := c.Validate()
	require.Error(t, err)
	var vmErr *VMError
	require.True(t, errors.As(err, &vmErr))
	assert.Equal(t, KindImageNotFound, vmErr.Kind)
}

func TestClone_IsIndependentCopy(t *testing.T) {
	c := New("/img", "/ws").WithEnv("A", "1")
	clone, err := c.Clone()
	require.NoError(t, err)

	clone.Env["A"] = "2"
	clone.CPUs = 99

	assert.Equal(t, "1", c.Env["A"])
	assert.Equal(t, DefaultCPUs, c.CPUs)
}

func TestVMError_Unwrap(t *testing.T) {
	underlying := errors.New("disk full")
	wrapped := Io(underlying)

	assert.ErrorIs(t, wrapped, underlying)
}

func TestErrHealthTimeout_CarriesDuration(t *testing.T) {
	err := ErrHealthTimeout(150 * time.Millisecond)
	var vmErr *VMError
	require.True(t, errors.As(err, &vmErr))
	assert.Equal(t, 150*time.Millisecond, vmErr.Timeout)
}

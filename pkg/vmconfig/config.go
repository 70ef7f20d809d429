package vmconfig

import (
	"github.com/jinzhu/copier"
	"github.com/pbnjay/memory"
)

const (
	// DefaultCPUs is the vCPU count used when no explicit count is set.
	DefaultCPUs = 2
	// DefaultMemoryBytes is the guest RAM used when no explicit amount is set.
	DefaultMemoryBytes = 2 << 30 // 2 GiB
	// DefaultSandboxPort is the guest port the in-guest sandbox server listens on.
	DefaultSandboxPort = 8080

	// minMemoryBytes is the floor below which a VM isn't worth booting.
	minMemoryBytes = 256 << 20 // 256 MiB
)

// VMConfig is a builder-shaped configuration value consumed by every VM
// backend's Start. All path fields are expected to be absolute; callers
// build one via New and the chainable With* setters.
type VMConfig struct {
	ImagePath     string
	WorkspacePath string
	CPUs          int
	MemoryBytes   uint64
	SandboxPort   int
	Env           map[string]string

	KernelPath     string
	InitrdPath     string
	KernelCmdline  string
	HelperPath     string
}

// New returns a VMConfig populated with the package defaults. MemoryBytes
// is not clamped against host RAM until the caller calls ClampMemory;
// Validate does not clamp it.
func New(imagePath, workspacePath string) *VMConfig {
	return &VMConfig{
		ImagePath:     imagePath,
		WorkspacePath: workspacePath,
		CPUs:          DefaultCPUs,
		MemoryBytes:   DefaultMemoryBytes,
		SandboxPort:   DefaultSandboxPort,
		Env:           make(map[string]string),
	}
}

// WithCPUs sets the vCPU count.
func (c *VMConfig) WithCPUs(n int) *VMConfig {
	c.CPUs = n
	return c
}

// WithMemoryBytes sets the guest memory size in bytes.
func (c *VMConfig) WithMemoryBytes(n uint64) *VMConfig {
	c.MemoryBytes = n
	return c
}

// WithSandboxPort sets the guest port the sandbox server binds.
func (c *VMConfig) WithSandboxPort(port int) *VMConfig {
	c.SandboxPort = port
	return c
}

// WithEnv sets a single environment variable passed through to the guest.
func (c *VMConfig) WithEnv(key, value string) *VMConfig {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
	return c
}

// WithKernel sets the direct-kernel-boot fields used by the hypervisor backend.
func (c *VMConfig) WithKernel(kernelPath, initrdPath, cmdline string) *VMConfig {
	c.KernelPath = kernelPath
	c.InitrdPath = initrdPath
	c.KernelCmdline = cmdline
	return c
}

// WithHelper sets the path to the out-of-process helper binary used by the
// hypervisor backend.
func (c *VMConfig) WithHelper(path string) *VMConfig {
	c.HelperPath = path
	return c
}

// ClampMemory lowers MemoryBytes to fit within a fraction of total host RAM
// when the configured amount would leave the host starved, and raises it to
// minMemoryBytes if it's unreasonably small. Apart from that floor, it never
// increases a config above what the caller explicitly requested.
func (c *VMConfig) ClampMemory() {
	if c.MemoryBytes < minMemoryBytes {
		c.MemoryBytes = minMemoryBytes
	}
	total := memory.TotalMemory()
	if total == 0 {
		return // couldn't detect; trust the caller
	}
	ceiling := total / 2
	if c.MemoryBytes > ceiling && ceiling >= minMemoryBytes {
		c.MemoryBytes = ceiling
	}
}

// Validate checks the required fields are populated. It does not touch the
// filesystem; backends are responsible for checking ImagePath et al. exist
// via the stager.
func (c *VMConfig) Validate() error {
	if c.ImagePath == "" {
		return ErrImageNotFound("")
	}
	if c.WorkspacePath == "" {
		return Io(errNoWorkspace)
	}
	if c.CPUs <= 0 {
		c.CPUs = DefaultCPUs
	}
	if c.MemoryBytes == 0 {
		c.MemoryBytes = DefaultMemoryBytes
	}
	if c.SandboxPort == 0 {
		c.SandboxPort = DefaultSandboxPort
	}
	return nil
}

// Clone deep-copies c, including its Env map, for callers that need a
// mutated variant of the same logical config.
func (c *VMConfig) Clone() (*VMConfig, error) {
	dst := &VMConfig{}
	if err := copier.CopyWithOption(dst, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, Io(err)
	}
	return dst, nil
}

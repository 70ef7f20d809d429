package resources

import (
	_ "embed"
	"fmt"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var manifestYAML []byte

// platformFiles names the resource-root-relative sidecar and VM artifact
// filenames for one GOOS.
type platformFiles struct {
	WorkerBinary   string `yaml:"worker_binary"`
	ShimBinary     string `yaml:"shim_binary"`
	Image          string `yaml:"image"`
	Kernel         string `yaml:"kernel"`
	Initrd         string `yaml:"initrd"`
	Helper         string `yaml:"helper"`
}

type manifest struct {
	Platforms map[string]platformFiles `yaml:"platforms"`
}

var loaded manifest

func init() {
	if err := yaml.Unmarshal(manifestYAML, &loaded); err != nil {
		panic(fmt.Sprintf("resources: embedded manifest.yaml is invalid: %v", err))
	}
}

// filesForGOOS returns the filename table for goos, defaulting to the
// running host's GOOS when goos is empty.
func filesForGOOS(goos string) (platformFiles, error) {
	if goos == "" {
		goos = runtime.GOOS
	}
	pf, ok := loaded.Platforms[goos]
	if !ok {
		return platformFiles{}, fmt.Errorf("resources: no artifact manifest for GOOS %q", goos)
	}
	return pf, nil
}

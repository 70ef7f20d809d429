package supervisor

import (
	"os"
	"strconv"
)

// Environment variables recognized at startup (§6). Port overrides default
// to the VMConfig/sidecar package defaults when unset or unparsable.
const (
	EnvAutostartDisable = "DESKTOPD_AUTOSTART_DISABLE"
	EnvResourceRoot     = "DESKTOPD_RESOURCE_ROOT" // mirrors resources.ResourceRootEnvVar

	EnvControlplanePort = "DESKTOPD_CONTROLPLANE_PORT"
	EnvFrontendPort     = "DESKTOPD_FRONTEND_PORT"
	EnvSandboxPort      = "DESKTOPD_SANDBOX_PORT"

	EnvSandboxURL          = "DESKTOPD_SANDBOX_URL"
	EnvSandboxInternalTok  = "DESKTOPD_SANDBOX_INTERNAL_TOKEN"
	EnvInternalAPIToken    = "DESKTOPD_INTERNAL_API_TOKEN"

	EnvDevAuth        = "DESKTOPD_DEV_AUTH"
	EnvAllowedOrigins = "DESKTOPD_ALLOWED_ORIGINS"
	EnvFrontendURL    = "DESKTOPD_FRONTEND_URL"

	// EnvDBShimDebug is passed through to the database shim sidecar
	// verbatim when set, matching the original's D1_SHIM_DEBUG passthrough.
	EnvDBShimDebug = "DESKTOPD_DBSHIM_DEBUG"
)

// autostartDisabled reports whether EnvAutostartDisable is set to "0", the
// literal value the host UI uses to request "skip service and VM startup".
func autostartDisabled() bool {
	return os.Getenv(EnvAutostartDisable) == "0"
}

func envIntOr(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

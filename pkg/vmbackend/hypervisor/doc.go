// Package hypervisor implements the native-hypervisor VM backend for
// macOS hosts, built on Virtualization.framework via Code-Hex/vz. It is
// the preferred backend (§4.7.1). If the host's macOS version is too old or
// the signed helper fails to launch, Backend.Start returns a
// vmconfig.VMError of kind StartFailed; neither this package nor
// vmbackend.NewDefault switches to the emulator backend on that error.
package hypervisor

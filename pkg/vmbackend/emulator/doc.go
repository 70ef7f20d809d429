// Package emulator implements the emulator-with-acceleration VM backend
// (QEMU) that vmbackend.NewDefault returns on Linux hosts (§4.7.2). It also
// builds on macOS, with HVF acceleration, but nothing in this module selects
// it there when the native hypervisor backend is unavailable.
package emulator

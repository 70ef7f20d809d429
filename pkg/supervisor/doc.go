// Package supervisor owns the service supervisor (§4.8): resource root
// resolution, PID-file-tracked sidecar lifecycle, stale-orphan reaping
// across crash restarts, and bringing up the sandbox VM on a background
// worker after the worker runtime's health probe.
package supervisor

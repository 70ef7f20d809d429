package vmconfig

import (
	"errors"
	"fmt"
	"time"
)

var errNoWorkspace = errors.New("vmconfig: workspace path is empty")

// Kind identifies which VMError variant an error carries.
type Kind int

const (
	KindImageNotFound Kind = iota
	KindStartFailed
	KindStopFailed
	KindHealthTimeout
	KindMountFailed
	KindUnsupportedPlatform
	KindIO
)

// VMError is the tagged error variant used across every VM backend. Each
// constructor below returns one populated for its kind; Unwrap exposes the
// wrapped underlying error (when there is one) so errors.Is/errors.As work
// through it.
type VMError struct {
	Kind     Kind
	Path     string
	Message  string
	Timeout  time.Duration
	Platform string
	Err      error
}

func (e *VMError) Error() string {
	switch e.Kind {
	case KindImageNotFound:
		return fmt.Sprintf("vmconfig: image not found: %s", e.Path)
	case KindStartFailed:
		return fmt.Sprintf("vmconfig: start failed: %s", e.Message)
	case KindStopFailed:
		return fmt.Sprintf("vmconfig: stop failed: %s", e.Message)
	case KindHealthTimeout:
		return fmt.Sprintf("vmconfig: health check timed out after %s", e.Timeout)
	case KindMountFailed:
		return fmt.Sprintf("vmconfig: mount failed: %s", e.Message)
	case KindUnsupportedPlatform:
		return fmt.Sprintf("vmconfig: unsupported platform: %s", e.Platform)
	case KindIO:
		if e.Err != nil {
			return fmt.Sprintf("vmconfig: io error: %v", e.Err)
		}
		return "vmconfig: io error"
	default:
		return "vmconfig: unknown error"
	}
}

// Unwrap exposes the wrapped underlying error, if any.
func (e *VMError) Unwrap() error {
	return e.Err
}

// ErrImageNotFound reports a missing VM disk image.
func ErrImageNotFound(path string) error {
	return &VMError{Kind: KindImageNotFound, Path: path}
}

// ErrStartFailed reports a backend Start failure.
func ErrStartFailed(msg string) error {
	return &VMError{Kind: KindStartFailed, Message: msg}
}

// ErrStopFailed reports a backend Stop failure.
func ErrStopFailed(msg string) error {
	return &VMError{Kind: KindStopFailed, Message: msg}
}

// ErrHealthTimeout reports a health probe that never succeeded within d.
func ErrHealthTimeout(d time.Duration) error {
	return &VMError{Kind: KindHealthTimeout, Timeout: d}
}

// ErrMountFailed reports a shared-filesystem negotiation failure.
func ErrMountFailed(msg string) error {
	return &VMError{Kind: KindMountFailed, Message: msg}
}

// ErrUnsupportedPlatform reports that no backend is usable on this host.
func ErrUnsupportedPlatform(name string) error {
	return &VMError{Kind: KindUnsupportedPlatform, Platform: name}
}

// Io wraps an underlying OS error so diagnostics survive.
func Io(err error) error {
	return &VMError{Kind: KindIO, Err: err}
}

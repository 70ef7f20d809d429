// Package vmbackend defines the Backend contract every platform-specific
// VM implementation satisfies, plus the shared TCP/HTTP health probe used
// by all of them.
package vmbackend

// Package vmconfig holds the VMConfig builder and the VMError tagged
// error variants shared by every VM backend.
package vmconfig

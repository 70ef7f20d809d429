// Package pathsafety validates caller-supplied relative paths and checks
// that a logical destination stays within a canonical workspace root,
// without touching the filesystem beyond the Lstat calls needed to
// detect symlinks already planted on disk.
package pathsafety

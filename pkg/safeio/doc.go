// Package safeio provides symlink-refusing file copy and directory
// creation primitives. Every mutating call re-verifies containment under
// a workspace root after the filesystem operation completes, closing the
// TOCTOU window between the pathsafety package's pre-check and the
// syscall that actually touches disk.
package safeio

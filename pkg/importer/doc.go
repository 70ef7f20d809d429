// Package importer orchestrates a two-phase scan-then-copy import of a
// user-selected file or directory into a sandbox workspace, streaming
// progress to an external sink and accumulating per-file errors rather
// than aborting on the first failure.
package importer

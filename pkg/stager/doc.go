// Package stager idempotently materializes bundled VM artifacts (disk
// images, kernels, initrds, helper binaries) into a writable data
// directory, skipping work when the destination is already fresh and
// recording a SHA-256 integrity ledger for artifacts that have been
// staged.
package stager

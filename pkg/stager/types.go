package stager

// VMResourcePaths names the resource-root-relative locations of the
// artifacts a platform backend needs. Kernel, Initrd, and Helper are
// optional — only populated for backends that need them.
type VMResourcePaths struct {
	Image  string
	Kernel string
	Initrd string
	Helper string
}

// StagedPaths mirrors VMResourcePaths but holds the absolute, staged
// (decompressed, copied-into-data-dir) paths actually passed to a backend.
type StagedPaths struct {
	Image  string
	Kernel string
	Initrd string
	Helper string
}

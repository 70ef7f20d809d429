// Package resources resolves the on-disk resource root the supervisor and
// VM backends stage artifacts from, and the platform-specific filenames to
// look for within it (§4.8's resource root resolution, §4.5's resource
// resolution). The filename table itself lives in an embedded YAML
// manifest, the same way the teacher's Lima integration describes its
// instance config in YAML rather than Go literals.
package resources

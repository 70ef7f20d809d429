// Package log provides structured logging for the supervisor, VM
// backends, and importer using zerolog. Init configures a single global
// logger; every component gets a child logger scoped with a "component"
// field via WithComponent, plus WithImportID/WithBackend for the two
// correlation IDs that show up across log lines for a single operation.
package log

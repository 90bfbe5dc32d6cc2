// Package registry provides the central "glue" between operator type names
// used in graph files (e.g. "passthrough") and the Go factories that build
// operator instances.
//
// The evaluator never constructs a registry itself; it only depends on the
// Lookup interface, so callers can inject any lookup service. Registry is the
// default, map-backed implementation populated by operator Modules at startup.
package registry

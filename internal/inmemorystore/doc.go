// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It is suitable for any single-process
// evaluation, which is the only kind this module performs.
package inmemorystore

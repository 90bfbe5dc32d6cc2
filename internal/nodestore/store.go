// Package nodestore defines the evaluation cache contract: a mapping from node
// id to an optional computed artifact.
//
// # Why Node Store Exists
//
// The node store isolates **mutable evaluation state** (which nodes have an
// artifact, and what it is) from the **graph structure** held by
// internal/graph. The evaluator reads structure from the graph and writes
// results here, so structural reads never contend with cache writes.
//
// # Entry Lifecycle
//
//	Register → unset
//	Set      → computed (Artifact may legitimately be nil)
//	Clear    → unset again (explicit invalidation only)
//	Delete   → entry gone (explicit eviction of a removed node)
//
// "Unset" and "computed to nil" are different states; Entry.Computed tells
// them apart.
//
// # Generations
//
// Every state change gives the entry a new Generation. A generation is never
// reused for the same id, not even after Delete and a later Register. A caller that computes an
// artifact outside the store's lock records the generation it started from and
// commits with CompareAndSet, so an invalidation or an external Set that
// happened in the meantime is never overwritten by a stale result. The same
// holds when the node was evicted and re-added while the result was computed.
package nodestore

import "github.com/vk/opgraph/internal/nodeid"

// Entry is the cached state of one node.
type Entry struct {
	Artifact   any
	Computed   bool
	Generation uint64
}

// Store is the interface for the evaluation cache.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: the scheduler evaluates
// independent nodes in parallel and every result lands in the same store.
type Store interface {
	// Register creates an unset entry for id. It reports false and leaves the
	// entry untouched when id is already registered.
	Register(id nodeid.ID) bool

	// Get returns the entry for id and whether it is registered.
	Get(id nodeid.ID) (Entry, bool)

	// Set stores a computed artifact for id, registering it if needed.
	Set(id nodeid.ID, artifact any)

	// CompareAndSet stores a computed artifact only if id is registered and
	// its generation still equals generation. It reports whether the write
	// happened.
	CompareAndSet(id nodeid.ID, generation uint64, artifact any) bool

	// Clear returns id to the unset state. It reports whether id held a
	// computed artifact.
	Clear(id nodeid.ID) bool

	// Delete removes the entry for id. It reports whether id was registered.
	Delete(id nodeid.ID) bool

	// IDs returns all registered ids, sorted.
	IDs() []nodeid.ID

	// Counts returns the number of computed and unset entries.
	Counts() (computed, unset int)
}

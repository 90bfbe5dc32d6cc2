// Package evaluator implements the graph context: the evaluation cache plus
// the single-node, pull-based evaluation protocol on top of it.
//
// # Protocol
//
// A node is ready when every producer it sources from has a computed
// artifact. Evaluate on a node that is not ready returns false with no side
// effects; the caller is expected to evaluate producers first and retry. The
// evaluator imposes no global order. A driver loop (internal/scheduler)
// repeatedly evaluates pending nodes until a pass makes no progress.
//
// # Cache Lifecycle
//
// Entries are created unset by New and Update. A successful evaluation stores
// the artifact exactly once; later Evaluate calls return the cached artifact
// without calling the binder. Entries only go back to unset through
// Invalidate or Evict, which also clear every descendant.
//
// Update never evicts. A node removed from the graph keeps its entry until
// the caller evicts it, so its consumers keep reporting it as an unresolved
// source in the meantime. Update returns the ids that changed instead of
// broadcasting events.
//
// # Concurrency
//
// All cache reads and writes go through a thread-safe nodestore.Store. The
// binder runs with no lock held. A result is committed only if the entry was
// not invalidated, overwritten or evicted while the binder ran, and concurrent
// Evaluate calls for the same node share one binder invocation. That shared
// invocation is not cancelled when one of the waiting callers gives up.
package evaluator

// Package dag holds the dependency analysis over a graph snapshot: the
// descendant and ancestor closures used for invalidation and auditing, cycle
// detection, and a level ordering for display and parallel planning.
//
// All functions read the graph through its public API and never mutate it.
package dag

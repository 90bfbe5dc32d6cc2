// Package graph holds the structural model of an operator graph: an ordered
// collection of nodes with unique ids and the source edges between them.
//
// # Why Graph Package Exists
//
// The graph is the single source of truth for structure. It deliberately
// knows nothing about execution: computed artifacts live in the evaluation
// cache (nodestore), readiness and binding live in the evaluator. Keeping the
// two apart means an editor can mutate the structure between evaluation passes
// and the evaluator decides what that means for cached results.
//
// # Arena Model
//
// Nodes are stored in an arena keyed by nodeid.ID, plus a slice preserving
// insertion order:
//
//	┌────────────────────────────┐
//	│           Graph            │
//	│  order: [R, P, Q]          │
//	│  nodes: {R:…, P:…, Q:…}    │
//	└────────────────────────────┘
//
// Edges are stored on the consuming node (node.Source{Input, Producer}) and
// refer to producers by id, never by pointer, so removing or replacing a
// node cannot leave aliased pointers behind.
//
// # Ownership
//
// Nodes are copied on the way in (Add, Replace) and on the way out (Node,
// FindNode, Nodes). Callers can never mutate a node the graph owns without
// going through the graph's API.
//
// # Invariants
//
//   - Node ids are unique at any point in time; Add fails with a
//     grapherr.DuplicateNodeIDError on collision.
//   - Edges must resolve to nodes in the same graph. CheckSources reports every
//     dangling edge; it is not enforced on insert because interactive edits
//     routinely pass through transient states.
//   - The edge relation must be acyclic. This is checked by the dag package,
//     not here.
//
// # Thread-Safety
//
// All methods are safe for concurrent use. Reads take a shared lock, so the
// evaluator can scan structure while another goroutine mutates its cache.
package graph

// Package scheduler drives a graph to a fixed point: it repeatedly evaluates
// every pending node until each one has an artifact or a full pass makes no
// progress.
//
// # Why Scheduler Exists
//
// The evaluator only offers a single-node primitive that says "not ready yet"
// when a producer has no artifact. Something has to keep asking. The
// scheduler is that driver loop:
//
//  1. Collect pending nodes, minus nodes that already failed in this run and
//     nodes whose validation status is error.
//  2. Evaluate them in parallel through a bounded worker pool. Nodes whose
//     producers are still pending answer "not ready" and cost nothing.
//  3. Repeat while the previous pass computed at least one node.
//
// Because each pass only needs every producer of a node to be computed in an
// earlier pass, a DAG of depth d finishes in at most d+1 passes.
//
// # Failure Policy
//
// A failing node is recorded in the report and not retried within the same
// run. Its descendants never become ready and end up blocked; unrelated nodes
// keep running.
package scheduler

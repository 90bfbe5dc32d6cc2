/*
Package nodeid provides the validated identifier used for nodes in a graph.

An identifier is a dot-separated sequence of segments, each optionally
carrying an index suffix, e.g. `reader`, `stage.filter[0]`.

This package enforces the identifier schema and centralizes all parsing and
set logic, so the rest of the system can key maps by ID without re-checking.
*/
package nodeid

// Package validation derives the advisory status of every node (incomplete,
// validated or error) and tracks it for editors and drivers.
//
// Validator recomputes statuses from scratch on each pass; nothing is patched
// incrementally. Tracker holds the latest statuses and enforces the status
// state machine for manual transitions. Evaluation does not depend on this
// package: the scheduler consults a Tracker only to skip nodes in error.
package validation

// Package grapherr defines the errors raised to callers of the graph engine.
//
// Every error is a struct carrying the attributable node id (and operator type
// where one is involved), and matches a sentinel through errors.Is, so callers
// can branch on the kind without type assertions:
//
//	if errors.Is(err, grapherr.ErrOperatorNotFound) { ... }
//
// Construction and execution failures keep their cause reachable through
// errors.Unwrap.
package grapherr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/opgraph/internal/nodeid"
)

// Sentinels for errors.Is.
var (
	ErrDuplicateNodeID            = errors.New("duplicate node id")
	ErrOperatorNotFound           = errors.New("operator not found")
	ErrOperatorConstructionFailed = errors.New("operator construction failed")
	ErrNodeExecutionFailed        = errors.New("node execution failed")
	ErrCyclicGraph                = errors.New("cyclic graph")
	ErrDanglingSourceReference    = errors.New("dangling source reference")
	ErrUnknownNode                = errors.New("unknown node")
)

// DuplicateNodeIDError is returned when a node is inserted under an id that
// is already taken.
type DuplicateNodeIDError struct {
	ID nodeid.ID
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("duplicate node id %q", e.ID)
}

func (e *DuplicateNodeIDError) Is(target error) bool { return target == ErrDuplicateNodeID }

// OperatorNotFoundError is returned when the registry has no factory for a
// node's operator type.
type OperatorNotFoundError struct {
	NodeID   nodeid.ID
	Operator string
}

func (e *OperatorNotFoundError) Error() string {
	return fmt.Sprintf("node %q: operator %q not found", e.NodeID, e.Operator)
}

func (e *OperatorNotFoundError) Is(target error) bool { return target == ErrOperatorNotFound }

// OperatorConstructionError wraps a failure to instantiate a node's operator.
type OperatorConstructionError struct {
	NodeID   nodeid.ID
	Operator string
	Cause    error
}

func (e *OperatorConstructionError) Error() string {
	return fmt.Sprintf("node %q: constructing operator %q: %v", e.NodeID, e.Operator, e.Cause)
}

func (e *OperatorConstructionError) Unwrap() error { return e.Cause }

func (e *OperatorConstructionError) Is(target error) bool {
	return target == ErrOperatorConstructionFailed
}

// NodeExecutionError wraps a failure while binding inputs to, or computing
// the output of, a node's operator.
type NodeExecutionError struct {
	NodeID   nodeid.ID
	Operator string
	Cause    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q: executing operator %q: %v", e.NodeID, e.Operator, e.Cause)
}

func (e *NodeExecutionError) Unwrap() error { return e.Cause }

func (e *NodeExecutionError) Is(target error) bool { return target == ErrNodeExecutionFailed }

// CyclicGraphError reports a cycle. Path starts and ends with the same id
// when the cycle is known, e.g. [a b c a].
type CyclicGraphError struct {
	Path []nodeid.ID
}

func (e *CyclicGraphError) Error() string {
	if len(e.Path) == 0 {
		return "cyclic graph"
	}
	return "cyclic graph: " + strings.Join(nodeid.Strings(e.Path), " -> ")
}

func (e *CyclicGraphError) Is(target error) bool { return target == ErrCyclicGraph }

// DanglingSourceReferenceError reports an edge whose producer does not exist
// in the graph.
type DanglingSourceReferenceError struct {
	NodeID    nodeid.ID
	Input     string
	MissingID nodeid.ID
}

func (e *DanglingSourceReferenceError) Error() string {
	return fmt.Sprintf("node %q: input %q references missing node %q", e.NodeID, e.Input, e.MissingID)
}

func (e *DanglingSourceReferenceError) Is(target error) bool {
	return target == ErrDanglingSourceReference
}

// UnknownNodeError is returned when an operation names a node that the
// graph or the evaluation cache does not know.
type UnknownNodeError struct {
	ID nodeid.ID
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.ID)
}

func (e *UnknownNodeError) Is(target error) bool { return target == ErrUnknownNode }

// NodeOf returns the id of the node an error is attributable to, searching
// the whole wrap chain.
func NodeOf(err error) (nodeid.ID, bool) {
	var (
		dup      *DuplicateNodeIDError
		notFound *OperatorNotFoundError
		ctor     *OperatorConstructionError
		exec     *NodeExecutionError
		dangling *DanglingSourceReferenceError
		unknown  *UnknownNodeError
	)
	switch {
	case errors.As(err, &exec):
		return exec.NodeID, true
	case errors.As(err, &ctor):
		return ctor.NodeID, true
	case errors.As(err, &notFound):
		return notFound.NodeID, true
	case errors.As(err, &dangling):
		return dangling.NodeID, true
	case errors.As(err, &dup):
		return dup.ID, true
	case errors.As(err, &unknown):
		return unknown.ID, true
	}
	return "", false
}

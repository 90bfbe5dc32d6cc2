package config

import (
	"errors"
	"fmt"

	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// Model is the unified, format-agnostic representation of one or more graph
// files.
type Model struct {
	Nodes []*NodeSpec
}

// NodeSpec is the format-agnostic representation of one node declaration.
type NodeSpec struct {
	ID       string
	Operator string
	Params   node.Params
	Sources  []SourceSpec
	// Origin locates the declaration for error messages, e.g. "graph.hcl:3,1-11".
	Origin string
}

// SourceSpec wires input Input to the output of node From.
type SourceSpec struct {
	Input string
	From  string
}

// Merge appends the nodes of other to m.
func (m *Model) Merge(other *Model) {
	if other != nil {
		m.Nodes = append(m.Nodes, other.Nodes...)
	}
}

// BuildGraph converts the model into a graph, keeping declaration order.
// Malformed ids, empty operators and duplicate ids are reported together,
// each prefixed with the declaration's origin. Dangling sources are left for
// the evaluator and validator to report.
func (m *Model) BuildGraph() (*graph.Graph, error) {
	g := graph.New()
	var errs []error

	for _, spec := range m.Nodes {
		n, err := spec.toNode()
		if err == nil {
			err = g.Add(n)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec.Origin, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

func (s *NodeSpec) toNode() (*node.Node, error) {
	id, err := nodeid.Parse(s.ID)
	if err != nil {
		return nil, err
	}
	if s.Operator == "" {
		return nil, fmt.Errorf("node '%s': operator must not be empty", id)
	}

	n := &node.Node{ID: id, Operator: s.Operator, Params: s.Params}
	for _, src := range s.Sources {
		from, err := nodeid.Parse(src.From)
		if err != nil {
			return nil, fmt.Errorf("node '%s', input %q: %w", id, src.Input, err)
		}
		if src.Input == "" {
			return nil, fmt.Errorf("node '%s': source from '%s' has no input name", id, from)
		}
		n.Sources = append(n.Sources, node.Source{Input: src.Input, Producer: from})
	}
	return n, nil
}

package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Node builds a node whose producers are wired to inputs "in", "in2", "in3", ...
func Node(id, operator string, producers ...string) *node.Node {
	n := &node.Node{ID: nodeid.ID(id), Operator: operator}
	for i, p := range producers {
		n.Sources = append(n.Sources, node.Source{Input: InputName(i), Producer: nodeid.ID(p)})
	}
	return n
}

// InputName returns the input name Node assigns to the i-th producer.
func InputName(i int) string {
	if i == 0 {
		return "in"
	}
	return "in" + string(rune('1'+i))
}

// WithParam returns n with an extra parameter appended.
func WithParam(n *node.Node, key string, value cty.Value) *node.Node {
	n.Params = n.Params.With(key, value)
	return n
}

// MustGraph builds a graph from nodes and fails the test on error.
func MustGraph(t *testing.T, nodes ...*node.Node) *graph.Graph {
	t.Helper()
	g, err := graph.FromNodes(nodes...)
	require.NoError(t, err)
	return g
}

// Chain returns the R -> P -> Q graph: R is a "const" root, P and Q are
// "passthrough" steps.
func Chain(t *testing.T) *graph.Graph {
	t.Helper()
	return MustGraph(t,
		Node("R", "const"),
		Node("P", "passthrough", "R"),
		Node("Q", "passthrough", "P"),
	)
}

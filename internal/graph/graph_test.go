package graph

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// newNode is a helper that builds a node sourcing each producer under input "in", "in2", ...
func newNode(id, operator string, producers ...string) *node.Node {
	n := &node.Node{ID: nodeid.ID(id), Operator: operator}
	for i, p := range producers {
		input := "in"
		if i > 0 {
			input = fmt.Sprintf("in%d", i+1)
		}
		n.Sources = append(n.Sources, node.Source{Input: input, Producer: nodeid.ID(p)})
	}
	return n
}

func TestNew_Empty(t *testing.T) {
	g := New()
	assert.Equal(t, 0, g.NodeCount())
	assert.Empty(t, g.Nodes())
	assert.Nil(t, g.Node(0))
}

func TestAdd_PreservesOrder(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(newNode("r", "const")))
	require.NoError(t, g.Add(newNode("p", "passthrough", "r")))
	require.NoError(t, g.Add(newNode("q", "passthrough", "p")))

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, []nodeid.ID{"r", "p", "q"}, g.IDs())
	assert.Equal(t, nodeid.ID("p"), g.Node(1).ID)
	assert.Nil(t, g.Node(3))
	assert.Nil(t, g.Node(-1))
}

func TestAdd_DuplicateID(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(newNode("a", "const")))

	err := g.Add(newNode("a", "passthrough"))
	require.Error(t, err)
	assert.ErrorIs(t, err, grapherr.ErrDuplicateNodeID)

	var dup *grapherr.DuplicateNodeIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, nodeid.ID("a"), dup.ID)
	assert.Equal(t, 1, g.NodeCount())
}

func TestAdd_InvalidInput(t *testing.T) {
	g := New()
	assert.Error(t, g.Add(nil))
	assert.Error(t, g.Add(&node.Node{ID: "bad id"}))
	assert.Equal(t, 0, g.NodeCount())
}

func TestFromNodes(t *testing.T) {
	g, err := FromNodes(newNode("a", "const"), newNode("b", "passthrough", "a"))
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())

	_, err = FromNodes(newNode("a", "const"), newNode("a", "const"))
	assert.ErrorIs(t, err, grapherr.ErrDuplicateNodeID)
}

func TestFindNode_ReturnsCopy(t *testing.T) {
	g := New()
	original := newNode("a", "const")
	original.Params = node.Params{{Key: "value", Value: cty.StringVal("x")}}
	require.NoError(t, g.Add(original))

	// Mutating the caller's node after insertion does not leak into the graph.
	original.Operator = "changed"

	found, ok := g.FindNode("a")
	require.True(t, ok)
	assert.Equal(t, "const", found.Operator)

	found.Params[0].Key = "mutated"
	again, _ := g.FindNode("a")
	assert.Equal(t, "value", again.Params[0].Key)

	_, ok = g.FindNode("missing")
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(newNode("a", "const")))
	require.NoError(t, g.Add(newNode("b", "const")))

	require.NoError(t, g.Replace(newNode("a", "passthrough", "b")))
	n, _ := g.FindNode("a")
	assert.Equal(t, "passthrough", n.Operator)
	assert.Equal(t, []nodeid.ID{"a", "b"}, g.IDs(), "position is kept")

	err := g.Replace(newNode("ghost", "const"))
	assert.ErrorIs(t, err, grapherr.ErrUnknownNode)
}

func TestRemove_LeavesDanglingEdges(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(newNode("r", "const")))
	require.NoError(t, g.Add(newNode("p", "passthrough", "r")))

	assert.True(t, g.Remove("r"))
	assert.False(t, g.Remove("r"))
	assert.Equal(t, []nodeid.ID{"p"}, g.IDs())
	assert.False(t, g.Has("r"))

	errs := g.DanglingSources()
	require.Len(t, errs, 1)
	var dangling *grapherr.DanglingSourceReferenceError
	require.True(t, errors.As(errs[0], &dangling))
	assert.Equal(t, nodeid.ID("p"), dangling.NodeID)
	assert.Equal(t, "in", dangling.Input)
	assert.Equal(t, nodeid.ID("r"), dangling.MissingID)
	assert.ErrorIs(t, g.CheckSources(), grapherr.ErrDanglingSourceReference)
}

func TestCheckSources_Clean(t *testing.T) {
	g, err := FromNodes(newNode("a", "const"), newNode("b", "merge", "a", "a"))
	require.NoError(t, err)
	assert.NoError(t, g.CheckSources())
}

func TestConsumers(t *testing.T) {
	g, err := FromNodes(
		newNode("r", "const"),
		newNode("a", "passthrough", "r"),
		newNode("b", "passthrough", "r"),
		newNode("c", "merge", "a", "b"),
	)
	require.NoError(t, err)

	var ids []nodeid.ID
	for _, n := range g.Consumers("r") {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []nodeid.ID{"a", "b"}, ids)
	assert.Empty(t, g.Consumers("c"))
}

func TestClone_IsIndependent(t *testing.T) {
	g, err := FromNodes(newNode("a", "const"))
	require.NoError(t, err)

	c := g.Clone()
	require.NoError(t, c.Add(newNode("b", "passthrough", "a")))

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 2, c.NodeCount())
}

func TestGraph_ConcurrentAccess(t *testing.T) {
	g := New()
	numGoroutines := 50
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("n%d", i)
			if err := g.Add(newNode(id, "const")); err != nil {
				t.Errorf("add %s: %v", id, err)
			}
			_ = g.Nodes()
			_, _ = g.FindNode(nodeid.ID(id))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, g.NodeCount())
}

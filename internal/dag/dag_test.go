package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// shape is a tiny DSL for tests: id -> producers, sourced under inputs in0, in1, ...
type shape struct {
	id        string
	producers []string
}

func buildGraph(t *testing.T, shapes ...shape) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, s := range shapes {
		n := &node.Node{ID: nodeid.ID(s.id), Operator: "op"}
		for i, p := range s.producers {
			n.Sources = append(n.Sources, node.Source{
				Input:    "in" + string(rune('0'+i)),
				Producer: nodeid.ID(p),
			})
		}
		require.NoError(t, g.Add(n))
	}
	return g
}

func chain(t *testing.T) *graph.Graph {
	return buildGraph(t, shape{"R", nil}, shape{"P", []string{"R"}}, shape{"Q", []string{"P"}})
}

func diamond(t *testing.T) *graph.Graph {
	return buildGraph(t,
		shape{"R", nil},
		shape{"A", []string{"R"}},
		shape{"B", []string{"R"}},
		shape{"C", []string{"A", "B"}},
	)
}

func TestDescendants(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		g := chain(t)
		assert.Equal(t, []nodeid.ID{"P", "Q"}, Descendants(g, "R").Sorted())
		assert.Equal(t, []nodeid.ID{"Q"}, Descendants(g, "P").Sorted())
		assert.Empty(t, Descendants(g, "Q"))
	})

	t.Run("never contains the start node and covers direct consumers", func(t *testing.T) {
		g := diamond(t)
		for _, id := range g.IDs() {
			desc := Descendants(g, id)
			assert.False(t, desc.Has(id), "descendants of %s contain itself", id)
			for _, consumer := range g.Consumers(id) {
				assert.True(t, desc.Has(consumer.ID), "descendants of %s miss direct consumer %s", id, consumer.ID)
			}
		}
		assert.Equal(t, []nodeid.ID{"A", "B", "C"}, Descendants(g, "R").Sorted())
	})

	t.Run("removed node still has a closure", func(t *testing.T) {
		g := chain(t)
		require.True(t, g.Remove("R"))
		assert.Equal(t, []nodeid.ID{"P", "Q"}, Descendants(g, "R").Sorted())
	})

	t.Run("terminates on a cycle", func(t *testing.T) {
		g := buildGraph(t, shape{"a", []string{"b"}}, shape{"b", []string{"a"}}, shape{"c", []string{"b"}})
		assert.Equal(t, []nodeid.ID{"b", "c"}, Descendants(g, "a").Sorted())
	})
}

func TestAncestors(t *testing.T) {
	t.Run("chain in traversal order", func(t *testing.T) {
		got, err := Ancestors(chain(t), "Q")
		require.NoError(t, err)
		assert.Equal(t, []nodeid.ID{"P", "R"}, got)
	})

	t.Run("diamond keeps duplicates", func(t *testing.T) {
		got, err := Ancestors(diamond(t), "C")
		require.NoError(t, err)
		if diff := cmp.Diff([]nodeid.ID{"A", "R", "B", "R"}, got); diff != "" {
			t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("root has none", func(t *testing.T) {
		got, err := Ancestors(chain(t), "R")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown start node", func(t *testing.T) {
		_, err := Ancestors(chain(t), "missing")
		assert.ErrorIs(t, err, grapherr.ErrUnknownNode)
	})

	t.Run("dangling producer", func(t *testing.T) {
		g := buildGraph(t, shape{"X", []string{"ghost"}})
		_, err := Ancestors(g, "X")
		var dangling *grapherr.DanglingSourceReferenceError
		require.True(t, errors.As(err, &dangling))
		assert.Equal(t, nodeid.ID("ghost"), dangling.MissingID)
	})

	t.Run("cycle fails instead of recursing", func(t *testing.T) {
		g := buildGraph(t,
			shape{"a", []string{"c"}},
			shape{"b", []string{"a"}},
			shape{"c", []string{"b"}},
			shape{"d", []string{"c"}},
		)
		_, err := Ancestors(g, "d")
		var cyc *grapherr.CyclicGraphError
		require.True(t, errors.As(err, &cyc))
		assert.Equal(t, []nodeid.ID{"c", "a", "b", "c"}, cyc.Path)
	})

	t.Run("self loop", func(t *testing.T) {
		g := buildGraph(t, shape{"a", []string{"a"}})
		_, err := Ancestors(g, "a")
		assert.ErrorIs(t, err, grapherr.ErrCyclicGraph)
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, DetectCycles(graph.New()))
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := buildGraph(t,
			shape{"a", nil},
			shape{"b", []string{"a"}},
			shape{"c", []string{"a", "b"}},
			shape{"d", []string{"c"}},
		)
		assert.NoError(t, DetectCycles(g))
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := buildGraph(t, shape{"a", []string{"b"}}, shape{"b", []string{"a"}})
		err := DetectCycles(g)
		var cyc *grapherr.CyclicGraphError
		require.True(t, errors.As(err, &cyc))
		assert.Equal(t, []nodeid.ID{"a", "b", "a"}, cyc.Path)
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := buildGraph(t,
			shape{"a", nil},
			shape{"b", []string{"a"}},
			shape{"x", []string{"z"}},
			shape{"y", []string{"x"}},
			shape{"z", []string{"y"}},
		)
		assert.ErrorIs(t, DetectCycles(g), grapherr.ErrCyclicGraph)
	})

	t.Run("dangling edges are not cycles", func(t *testing.T) {
		g := buildGraph(t, shape{"a", []string{"ghost"}})
		assert.NoError(t, DetectCycles(g))
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(diamond(t)))

	g := buildGraph(t, shape{"a", []string{"b"}}, shape{"b", []string{"a"}}, shape{"c", []string{"ghost"}})
	err := Validate(g)
	assert.ErrorIs(t, err, grapherr.ErrDanglingSourceReference)
	assert.ErrorIs(t, err, grapherr.ErrCyclicGraph)
}

func TestLevels(t *testing.T) {
	t.Run("diamond", func(t *testing.T) {
		levels, err := Levels(diamond(t))
		require.NoError(t, err)
		want := [][]nodeid.ID{{"R"}, {"A", "B"}, {"C"}}
		if diff := cmp.Diff(want, levels); diff != "" {
			t.Errorf("levels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("double edge from one producer", func(t *testing.T) {
		g := buildGraph(t, shape{"a", nil}, shape{"m", []string{"a", "a"}})
		levels, err := Levels(g)
		require.NoError(t, err)
		assert.Equal(t, [][]nodeid.ID{{"a"}, {"m"}}, levels)
	})

	t.Run("cycle", func(t *testing.T) {
		g := buildGraph(t, shape{"r", nil}, shape{"a", []string{"r", "b"}}, shape{"b", []string{"a"}})
		_, err := Levels(g)
		assert.ErrorIs(t, err, grapherr.ErrCyclicGraph)
	})

	t.Run("dangling", func(t *testing.T) {
		_, err := Levels(buildGraph(t, shape{"a", []string{"ghost"}}))
		assert.ErrorIs(t, err, grapherr.ErrDanglingSourceReference)
	})
}

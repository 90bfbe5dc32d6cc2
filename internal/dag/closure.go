package dag

import (
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// Descendants returns every node that consumes id's output, directly or
// indirectly. id itself is never part of the result, and id does not need to
// be present in g: the closure of a removed node is still well defined.
//
// The closure is computed by fixed-point iteration: starting from {id}, scan
// all nodes and add any node that sources from a member, until a full scan
// adds nothing. That is O(V²) worst case, fine for graphs edited by hand.
func Descendants(g *graph.Graph, id nodeid.ID) nodeid.Set {
	nodes := g.Nodes()
	closure := nodeid.NewSet(id)

	for changed := true; changed; {
		changed = false
		for _, n := range nodes {
			if closure.Has(n.ID) {
				continue
			}
			for _, src := range n.Sources {
				if closure.Has(src.Producer) {
					closure.Add(n.ID)
					changed = true
					break
				}
			}
		}
	}

	delete(closure, id)
	return closure
}

// ancestorFrame is one level of the explicit traversal stack.
type ancestorFrame struct {
	n    *node.Node
	next int
}

// Ancestors returns every node feeding id, directly or indirectly, in
// traversal order: each source's producer is listed, then its own ancestors,
// before moving to the next source. A node reachable along several paths is
// listed once per path; callers needing a set must deduplicate.
//
// The traversal uses an explicit stack. Revisiting a node that is still on the
// current path fails with grapherr.CyclicGraphError instead of recursing
// forever.
func Ancestors(g *graph.Graph, id nodeid.ID) ([]nodeid.ID, error) {
	index := snapshot(g)
	start, ok := index[id]
	if !ok {
		return nil, &grapherr.UnknownNodeError{ID: id}
	}

	var ancestors []nodeid.ID
	stack := []ancestorFrame{{n: start}}
	onPath := nodeid.NewSet(id)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.n.Sources) {
			delete(onPath, top.n.ID)
			stack = stack[:len(stack)-1]
			continue
		}
		src := top.n.Sources[top.next]
		top.next++

		if onPath.Has(src.Producer) {
			return nil, &grapherr.CyclicGraphError{Path: cyclePath(stack, src.Producer)}
		}
		producer, ok := index[src.Producer]
		if !ok {
			return nil, &grapherr.DanglingSourceReferenceError{
				NodeID:    top.n.ID,
				Input:     src.Input,
				MissingID: src.Producer,
			}
		}

		ancestors = append(ancestors, producer.ID)
		onPath.Add(producer.ID)
		stack = append(stack, ancestorFrame{n: producer})
	}

	return ancestors, nil
}

// cyclePath renders the stack from the first occurrence of closing back to
// closing again. The stack runs from the start node towards producers, so the
// path is reversed to read in data-flow order.
func cyclePath(stack []ancestorFrame, closing nodeid.ID) []nodeid.ID {
	var path []nodeid.ID
	for i := len(stack) - 1; i >= 0; i-- {
		path = append(path, stack[i].n.ID)
		if stack[i].n.ID == closing {
			break
		}
	}
	return append([]nodeid.ID{closing}, path...)
}

// snapshot indexes the graph's nodes by id.
func snapshot(g *graph.Graph) map[nodeid.ID]*node.Node {
	nodes := g.Nodes()
	index := make(map[nodeid.ID]*node.Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}
	return index
}

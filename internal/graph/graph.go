package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// Graph is an ordered arena of nodes with unique ids.
type Graph struct {
	mu    sync.RWMutex
	order []nodeid.ID
	nodes map[nodeid.ID]*node.Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[nodeid.ID]*node.Node),
	}
}

// FromNodes builds a graph by adding nodes in order.
func FromNodes(nodes ...*node.Node) (*Graph, error) {
	g := New()
	for _, n := range nodes {
		if err := g.Add(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add appends a node to the graph.
func (g *Graph) Add(n *node.Node) error {
	if n == nil {
		return errors.New("graph: cannot add nil node")
	}
	if _, err := nodeid.Parse(n.ID.String()); err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; exists {
		return &grapherr.DuplicateNodeIDError{ID: n.ID}
	}
	g.nodes[n.ID] = n.Clone()
	g.order = append(g.order, n.ID)
	return nil
}

// Replace swaps the stored node carrying n.ID for n, keeping its position.
// It is how an editor changes a node's configuration or edges.
func (g *Graph) Replace(n *node.Node) error {
	if n == nil {
		return errors.New("graph: cannot replace with nil node")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; !exists {
		return &grapherr.UnknownNodeError{ID: n.ID}
	}
	g.nodes[n.ID] = n.Clone()
	return nil
}

// Remove deletes the node with the given id. Edges of other nodes that
// reference it are left in place and become dangling. It reports whether a
// node was removed.
func (g *Graph) Remove(id nodeid.ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; !exists {
		return false
	}
	delete(g.nodes, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Node returns the i-th node in insertion order, or nil if i is out of range.
func (g *Graph) Node(i int) *node.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if i < 0 || i >= len(g.order) {
		return nil
	}
	return g.nodes[g.order[i]].Clone()
}

// FindNode looks a node up by id.
func (g *Graph) FindNode(id nodeid.ID) (*node.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id nodeid.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns a snapshot of all nodes in insertion order.
func (g *Graph) Nodes() []*node.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id].Clone())
	}
	return nodes
}

// IDs returns all node ids in insertion order.
func (g *Graph) IDs() []nodeid.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]nodeid.ID(nil), g.order...)
}

// Consumers returns the nodes that directly source from id, in insertion order.
func (g *Graph) Consumers(id nodeid.ID) []*node.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var consumers []*node.Node
	for _, cid := range g.order {
		if n := g.nodes[cid]; n.SourcesFrom(id) {
			consumers = append(consumers, n.Clone())
		}
	}
	return consumers
}

// Clone returns an independent copy of the graph, e.g. to prepare an edit
// that is later handed to the evaluator's Update.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := &Graph{
		order: append([]nodeid.ID(nil), g.order...),
		nodes: make(map[nodeid.ID]*node.Node, len(g.nodes)),
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.Clone()
	}
	return c
}

// DanglingSources returns one error per edge whose producer is not in the
// graph, in node insertion order.
func (g *Graph) DanglingSources() []error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for _, id := range g.order {
		for _, src := range g.nodes[id].Sources {
			if _, ok := g.nodes[src.Producer]; !ok {
				errs = append(errs, &grapherr.DanglingSourceReferenceError{
					NodeID:    id,
					Input:     src.Input,
					MissingID: src.Producer,
				})
			}
		}
	}
	return errs
}

// CheckSources joins every dangling edge into a single error, or returns nil.
func (g *Graph) CheckSources() error {
	return errors.Join(g.DanglingSources()...)
}

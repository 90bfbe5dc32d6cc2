package dag

import (
	"errors"
	"sort"

	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// DetectCycles checks the graph for any cycle along source edges. It returns
// a grapherr.CyclicGraphError describing the first cycle found, scanning nodes
// and edges in insertion order. Edges to missing producers are ignored here;
// CheckSources on the graph reports them.
func DetectCycles(g *graph.Graph) error {
	nodes := g.Nodes()
	index := make(map[nodeid.ID]*node.Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// temporary: on the current recursion path.
	permanent := make(map[nodeid.ID]bool)
	temporary := make(map[nodeid.ID]bool)
	var path []nodeid.ID

	var visit func(n *node.Node) error
	visit = func(n *node.Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return &grapherr.CyclicGraphError{Path: closeCycle(path, n.ID)}
		}

		temporary[n.ID] = true
		path = append(path, n.ID)

		for _, src := range n.Sources {
			producer, ok := index[src.Producer]
			if !ok {
				continue
			}
			if err := visit(producer); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// closeCycle cuts the recursion path at the revisited id and returns it in
// data-flow order (producer first), closed on both ends.
func closeCycle(path []nodeid.ID, revisited nodeid.ID) []nodeid.ID {
	start := 0
	for i, id := range path {
		if id == revisited {
			start = i
			break
		}
	}
	cycle := []nodeid.ID{revisited}
	for i := len(path) - 1; i >= start; i-- {
		cycle = append(cycle, path[i])
	}
	return cycle
}

// Validate reports every structural problem of g: dangling edges first, then
// the first cycle found. It returns nil for a well-formed DAG.
func Validate(g *graph.Graph) error {
	errs := g.DanglingSources()
	if err := DetectCycles(g); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Levels groups nodes by dependency depth using Kahn's algorithm: level 0
// holds nodes without sources, level k nodes whose producers all sit in
// levels below k. Nodes in one level are independent of each other. Within a
// level, nodes keep graph insertion order.
func Levels(g *graph.Graph) ([][]nodeid.ID, error) {
	if errs := g.DanglingSources(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	nodes := g.Nodes()
	position := make(map[nodeid.ID]int, len(nodes))
	inDegree := make(map[nodeid.ID]int, len(nodes))
	dependents := make(map[nodeid.ID][]nodeid.ID)

	for i, n := range nodes {
		position[n.ID] = i
		inDegree[n.ID] = len(n.Sources)
		for _, src := range n.Sources {
			dependents[src.Producer] = append(dependents[src.Producer], n.ID)
		}
	}

	var queue []nodeid.ID
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	var levels [][]nodeid.ID
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []nodeid.ID
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return position[next[i]] < position[next[j]] })
		queue = next
	}

	if visited != len(nodes) {
		if err := DetectCycles(g); err != nil {
			return nil, err
		}
		return nil, &grapherr.CyclicGraphError{}
	}
	return levels, nil
}

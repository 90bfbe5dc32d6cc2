package evaluator

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/dag"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/inmemorystore"
	"github.com/vk/opgraph/internal/metrics"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/nodestore"
	"golang.org/x/sync/singleflight"
)

// Binder computes one node's artifact from its resolved sources.
// *binder.Binder is the production implementation.
type Binder interface {
	Bind(ctx context.Context, n *node.Node, sources map[string]node.Artifact) (node.Artifact, error)
}

// Context owns the evaluation cache for one graph.
type Context struct {
	mu    sync.RWMutex
	graph *graph.Graph

	store   nodestore.Store
	binder  Binder
	metrics *metrics.Metrics
	flight  singleflight.Group
}

// Option configures a Context.
type Option func(*Context)

// WithStore replaces the default in-memory cache.
func WithStore(s nodestore.Store) Option {
	return func(c *Context) { c.store = s }
}

// WithMetrics records evaluation outcomes and cache occupancy.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// New validates g and registers every node with an unset cache entry.
// Dangling source references and cycles are rejected here, before any
// evaluation is attempted.
func New(g *graph.Graph, b Binder, opts ...Option) (*Context, error) {
	if err := dag.Validate(g); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	c := &Context{graph: g, binder: b}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = inmemorystore.New()
	}

	for _, id := range g.IDs() {
		c.store.Register(id)
	}
	c.publish()
	return c, nil
}

// Graph returns the graph currently evaluated.
func (c *Context) Graph() *graph.Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph
}

// Changes describes what an Update did to the cache.
type Changes struct {
	// Added lists nodes registered as unset, in graph order.
	Added []nodeid.ID
	// Orphaned lists cached nodes that are no longer in the graph. Their
	// entries stay until evicted.
	Orphaned []nodeid.ID
	// Dangling lists nodes that source from a node missing in the graph.
	Dangling []nodeid.ID
}

// Empty reports whether the update changed nothing.
func (ch Changes) Empty() bool {
	return len(ch.Added) == 0 && len(ch.Orphaned) == 0 && len(ch.Dangling) == 0
}

// Update switches the context to g. Nodes not yet cached are registered as
// unset; existing entries, computed or not, are left untouched. Removed nodes
// are reported as orphaned but not evicted, and consumers left with a
// dangling source are reported so the caller can decide what to evict or
// invalidate. A cyclic g is rejected and the context keeps its previous graph.
func (c *Context) Update(g *graph.Graph) (Changes, error) {
	if err := dag.DetectCycles(g); err != nil {
		return Changes{}, err
	}

	c.mu.Lock()
	c.graph = g
	c.mu.Unlock()

	var ch Changes
	ids := g.IDs()
	for _, id := range ids {
		if c.store.Register(id) {
			ch.Added = append(ch.Added, id)
		}
	}

	present := nodeid.NewSet(ids...)
	for _, id := range c.store.IDs() {
		if !present.Has(id) {
			ch.Orphaned = append(ch.Orphaned, id)
		}
	}

	dangling := nodeid.NewSet()
	for _, err := range g.DanglingSources() {
		if id, ok := grapherr.NodeOf(err); ok && dangling.Add(id) {
			ch.Dangling = append(ch.Dangling, id)
		}
	}

	c.publish()
	return ch, nil
}

// SourceArtifacts resolves the artifacts of every producer id sources from,
// keyed by input name. It is all-or-nothing: if any producer is missing from
// the graph or not yet computed, it returns false and no partial map. A node
// without sources is always ready.
func (c *Context) SourceArtifacts(id nodeid.ID) (map[string]node.Artifact, bool) {
	g := c.Graph()
	n, ok := g.FindNode(id)
	if !ok {
		return nil, false
	}
	return c.resolve(g, n)
}

func (c *Context) resolve(g *graph.Graph, n *node.Node) (map[string]node.Artifact, bool) {
	sources := make(map[string]node.Artifact, len(n.Sources))
	for _, src := range n.Sources {
		if !g.Has(src.Producer) {
			return nil, false
		}
		entry, ok := c.store.Get(src.Producer)
		if !ok || !entry.Computed {
			return nil, false
		}
		sources[src.Input] = entry.Artifact
	}
	return sources, true
}

// Evaluate computes id's artifact if it is ready.
//
// It returns (true, nil) when the node has an artifact afterwards, including
// when it was already cached; the binder is not called again in that case.
// It returns (false, nil) when some producer has no artifact yet. Binder
// failures are returned as they are and leave the entry unset, so the node can
// be retried once its configuration is fixed. Asking for a node that is not in
// the graph yields grapherr.UnknownNodeError; a node sourcing from a missing
// node yields grapherr.DanglingSourceReferenceError. When ctx is done before
// the binder returns, Evaluate returns ctx.Err() and the result, if any, is
// still committed for later callers.
func (c *Context) Evaluate(ctx context.Context, id nodeid.ID) (bool, error) {
	g := c.Graph()
	n, ok := g.FindNode(id)
	if !ok {
		return false, &grapherr.UnknownNodeError{ID: id}
	}
	if entry, ok := c.store.Get(id); ok && entry.Computed {
		c.metrics.ObserveEvaluation(metrics.ResultCached)
		return true, nil
	}
	for _, src := range n.Sources {
		if !g.Has(src.Producer) {
			return false, &grapherr.DanglingSourceReferenceError{NodeID: id, Input: src.Input, MissingID: src.Producer}
		}
	}

	// The shared binder call outlives any single caller: it keeps the values
	// of the ctx that started it, logger included, but none of its
	// cancellation. Each caller stops waiting when its own ctx is done.
	flight := c.flight.DoChan(id.String(), func() (any, error) {
		return c.evaluate(context.WithoutCancel(ctx), g, n)
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (c *Context) evaluate(ctx context.Context, g *graph.Graph, n *node.Node) (bool, error) {
	logger := ctxlog.FromContext(ctx).With("node", n.ID.String())

	c.store.Register(n.ID)
	entry, _ := c.store.Get(n.ID)
	if entry.Computed {
		c.metrics.ObserveEvaluation(metrics.ResultCached)
		return true, nil
	}

	sources, ready := c.resolve(g, n)
	if !ready {
		logger.Debug("Node is not ready.")
		c.metrics.ObserveEvaluation(metrics.ResultNotReady)
		return false, nil
	}

	artifact, err := c.binder.Bind(ctx, n, sources)
	if err != nil {
		c.metrics.ObserveEvaluation(metrics.ResultFailed)
		return false, err
	}

	if !c.store.CompareAndSet(n.ID, entry.Generation, artifact) {
		// Invalidated or overwritten while the binder ran.
		logger.Debug("Discarding stale evaluation result.")
		c.metrics.ObserveEvaluation(metrics.ResultStale)
		current, _ := c.store.Get(n.ID)
		return current.Computed, nil
	}

	logger.Debug("Node evaluated.")
	c.metrics.ObserveEvaluation(metrics.ResultComputed)
	c.publish()
	return true, nil
}

// SetArtifact stores an artifact produced out of band, e.g. to seed a root
// node. Descendants computed from an earlier artifact are not cleared; call
// Invalidate first when replacing one.
func (c *Context) SetArtifact(id nodeid.ID, artifact node.Artifact) error {
	if !c.Graph().Has(id) {
		return &grapherr.UnknownNodeError{ID: id}
	}
	c.store.Set(id, artifact)
	c.publish()
	return nil
}

// Artifact returns id's computed artifact. The second result is false while
// the entry is unset.
func (c *Context) Artifact(id nodeid.ID) (node.Artifact, bool) {
	entry, ok := c.store.Get(id)
	if !ok || !entry.Computed {
		return nil, false
	}
	return entry.Artifact, true
}

// Invalidate returns id and every descendant of id to the unset state, e.g.
// after id's configuration changed. It returns the ids that lost an artifact,
// sorted.
func (c *Context) Invalidate(id nodeid.ID) []nodeid.ID {
	var cleared []nodeid.ID
	if c.store.Clear(id) {
		cleared = append(cleared, id)
	}
	cleared = append(cleared, c.clearDescendants(id)...)
	nodeid.Sort(cleared)
	c.publish()
	return cleared
}

// Evict drops the entry of a node removed from the graph and clears every
// descendant that was computed from it. It returns the descendants that lost
// an artifact, sorted. Evicting a node that is still in the graph only clears
// its entry, since every graph node keeps one.
func (c *Context) Evict(id nodeid.ID) []nodeid.ID {
	if c.Graph().Has(id) {
		c.store.Clear(id)
	} else {
		c.store.Delete(id)
	}
	cleared := c.clearDescendants(id)
	nodeid.Sort(cleared)
	c.publish()
	return cleared
}

func (c *Context) clearDescendants(id nodeid.ID) []nodeid.ID {
	var cleared []nodeid.ID
	for d := range dag.Descendants(c.Graph(), id) {
		if c.store.Clear(d) {
			cleared = append(cleared, d)
		}
	}
	return cleared
}

// Computed lists graph nodes holding an artifact, in graph order.
func (c *Context) Computed() []nodeid.ID {
	return c.filter(true)
}

// Pending lists graph nodes without an artifact, in graph order.
func (c *Context) Pending() []nodeid.ID {
	return c.filter(false)
}

func (c *Context) filter(computed bool) []nodeid.ID {
	var ids []nodeid.ID
	for _, id := range c.Graph().IDs() {
		entry, _ := c.store.Get(id)
		if entry.Computed == computed {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Context) publish() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetCacheEntries(c.store.Counts())
}

package node

import (
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Artifact is the opaque output of executing one node. Artifacts are treated
// as read-only once produced and may be shared by any number of consumers.
type Artifact = any

// Node is a single vertex in the graph: one processing step with an operator
// type, its configuration and the edges it consumes.
type Node struct {
	// ID is the unique identifier of the node within its graph.
	ID nodeid.ID
	// Operator is the key into the operator registry, e.g. "passthrough".
	Operator string
	// Params holds the node's configuration in declaration order.
	Params Params
	// Sources lists the node's input edges in declaration order.
	Sources []Source
}

// Source is a directed edge: the named Input of the consuming node is fed by
// the artifact of Producer.
type Source struct {
	Input    string
	Producer nodeid.ID
}

// Param is a single named configuration value. Values are dynamically typed
// and may be scalars, lists or nested objects.
type Param struct {
	Key   string
	Value cty.Value
}

// Params is an ordered list of configuration values.
type Params []Param

// Get returns the value stored under key.
func (p Params) Get(key string) (cty.Value, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return cty.NilVal, false
}

// Keys returns parameter names in declaration order.
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, param := range p {
		keys[i] = param.Key
	}
	return keys
}

// With returns a copy of p where key is set to value. An existing key keeps
// its position; a new key is appended.
func (p Params) With(key string, value cty.Value) Params {
	out := make(Params, 0, len(p)+1)
	replaced := false
	for _, param := range p {
		if param.Key == key {
			param.Value = value
			replaced = true
		}
		out = append(out, param)
	}
	if !replaced {
		out = append(out, Param{Key: key, Value: value})
	}
	return out
}

// Producers returns the ids this node directly sources from, in edge order.
// An id feeding several inputs appears once per edge.
func (n *Node) Producers() []nodeid.ID {
	ids := make([]nodeid.ID, len(n.Sources))
	for i, src := range n.Sources {
		ids[i] = src.Producer
	}
	return ids
}

// SourcesFrom reports whether any of the node's edges references id.
func (n *Node) SourcesFrom(id nodeid.ID) bool {
	for _, src := range n.Sources {
		if src.Producer == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with n. cty values are immutable
// and are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Params != nil {
		c.Params = append(Params(nil), n.Params...)
	}
	if n.Sources != nil {
		c.Sources = append([]Source(nil), n.Sources...)
	}
	return &c
}

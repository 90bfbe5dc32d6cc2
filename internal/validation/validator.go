package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/dag"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Result is the derived status of one node and the problems behind it.
type Result struct {
	Status   node.Status
	Problems []error
}

// Err joins the problems, or returns nil for a validated node.
func (r Result) Err() error {
	return errors.Join(r.Problems...)
}

// Validator checks node configuration against the operator declarations
// available through a registry lookup.
type Validator struct {
	lookup registry.Lookup
}

// New creates a validator. Parameters and inputs are only checked for
// factories implementing registry.Describer.
func New(lookup registry.Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate derives the status of every node in g.
//
// A node is in error when its operator is unknown, a source points at a
// missing node, it sits on a cycle, a parameter cannot be converted to its
// declared type, an undeclared input is wired, or one input is wired twice.
// Otherwise it is incomplete when a required parameter is missing or a
// required input is unconnected, and validated in every other case.
func (v *Validator) Validate(ctx context.Context, g *graph.Graph) map[nodeid.ID]Result {
	logger := ctxlog.FromContext(ctx)
	results := make(map[nodeid.ID]Result, g.NodeCount())

	for _, n := range g.Nodes() {
		var errs, missing []error

		for _, src := range n.Sources {
			if !g.Has(src.Producer) {
				errs = append(errs, &grapherr.DanglingSourceReferenceError{NodeID: n.ID, Input: src.Input, MissingID: src.Producer})
			}
		}
		if err := onCycle(g, n); err != nil {
			errs = append(errs, err)
		}

		factory, ok := v.lookup.Lookup(n.Operator)
		if !ok {
			errs = append(errs, &grapherr.OperatorNotFoundError{NodeID: n.ID, Operator: n.Operator})
		} else if d, ok := factory.(registry.Describer); ok {
			spec := d.Describe()
			e, m := checkParams(n, spec)
			errs, missing = append(errs, e...), append(missing, m...)
			e, m = checkInputs(n, spec)
			errs, missing = append(errs, e...), append(missing, m...)
		}

		r := Result{Status: node.Validated}
		switch {
		case len(errs) > 0:
			r = Result{Status: node.Error, Problems: append(errs, missing...)}
		case len(missing) > 0:
			r = Result{Status: node.Incomplete, Problems: missing}
		}
		results[n.ID] = r
		logger.Debug("Node validated.", "node", n.ID.String(), "status", r.Status.String(), "problems", len(r.Problems))
	}
	return results
}

// onCycle reports whether n sources from one of its own descendants.
func onCycle(g *graph.Graph, n *node.Node) error {
	descendants := dag.Descendants(g, n.ID)
	for _, p := range n.Producers() {
		if p == n.ID || descendants.Has(p) {
			return fmt.Errorf("node %q sources from its own descendant %q: %w", n.ID, p, grapherr.ErrCyclicGraph)
		}
	}
	return nil
}

func checkParams(n *node.Node, spec registry.OperatorSpec) (errs, missing []error) {
	for _, p := range spec.Params {
		val, ok := n.Params.Get(p.Name)
		if !ok || val.IsNull() {
			if p.Required {
				missing = append(missing, fmt.Errorf("node %q: required parameter %q is missing", n.ID, p.Name))
			}
			continue
		}
		if p.Type == cty.NilType || p.Type.Equals(cty.DynamicPseudoType) {
			continue
		}
		if _, err := convert.Convert(val, p.Type); err != nil {
			errs = append(errs, fmt.Errorf("node %q: parameter %q must be %s: %w", n.ID, p.Name, p.Type.FriendlyName(), err))
		}
	}
	return errs, missing
}

func checkInputs(n *node.Node, spec registry.OperatorSpec) (errs, missing []error) {
	wired := make(map[string]bool, len(n.Sources))
	for _, src := range n.Sources {
		if wired[src.Input] {
			errs = append(errs, fmt.Errorf("node %q: input %q is wired more than once", n.ID, src.Input))
			continue
		}
		wired[src.Input] = true
		if _, ok := spec.Input(src.Input); !ok && !spec.AnyInputs {
			errs = append(errs, fmt.Errorf("node %q: operator %q has no input %q", n.ID, n.Operator, src.Input))
		}
	}
	for _, in := range spec.Inputs {
		if in.Required && !wired[in.Name] {
			missing = append(missing, fmt.Errorf("node %q: required input %q is not connected", n.ID, in.Name))
		}
	}
	return errs, missing
}

// Package binder turns one node plus its already-computed source artifacts
// into an output artifact: look up the operator factory, instantiate the
// operator, bind inputs, request the output.
//
// The binder keeps no state between calls. Memoization belongs to the
// evaluator.
package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/metrics"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
)

// Binder executes single nodes against an injected operator lookup.
type Binder struct {
	lookup  registry.Lookup
	metrics *metrics.Metrics
}

// Option configures a Binder.
type Option func(*Binder)

// WithMetrics records bind counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Binder) { b.metrics = m }
}

// New creates a binder resolving operators through lookup.
func New(lookup registry.Lookup, opts ...Option) *Binder {
	b := &Binder{lookup: lookup}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind instantiates n's operator, binds sources to its inputs and returns the
// computed output. Failures are typed and carry n's id:
//   - grapherr.OperatorNotFoundError when the lookup has no factory,
//   - grapherr.OperatorConstructionError when the factory fails or panics,
//   - grapherr.NodeExecutionError when binding an input or computing the
//     output fails or panics.
func (b *Binder) Bind(ctx context.Context, n *node.Node, sources map[string]node.Artifact) (node.Artifact, error) {
	logger := ctxlog.FromContext(ctx).With("node", n.ID.String(), "operator", n.Operator)

	start := time.Now()
	out, err := b.bind(ctx, logger, n, sources)
	elapsed := time.Since(start)
	b.metrics.ObserveBind(n.Operator, elapsed, err)

	if err != nil {
		logger.Debug("Node binding failed.", "error", err, "elapsed", elapsed)
		return nil, err
	}
	logger.Debug("Node binding succeeded.", "elapsed", elapsed)
	return out, nil
}

func (b *Binder) bind(ctx context.Context, logger *slog.Logger, n *node.Node, sources map[string]node.Artifact) (node.Artifact, error) {
	factory, ok := b.lookup.Lookup(n.Operator)
	if !ok {
		return nil, &grapherr.OperatorNotFoundError{NodeID: n.ID, Operator: n.Operator}
	}

	var op registry.Operator
	err := guard(func() error {
		var err error
		op, err = factory.Create(ctx, n.Params)
		return err
	})
	if err == nil && op == nil {
		err = errors.New("factory returned no operator")
	}
	if err != nil {
		return nil, &grapherr.OperatorConstructionError{NodeID: n.ID, Operator: n.Operator, Cause: err}
	}

	// Bind in a stable order so operators observe the same call sequence on
	// every run.
	inputs := make([]string, 0, len(sources))
	for name := range sources {
		inputs = append(inputs, name)
	}
	sort.Strings(inputs)

	for _, name := range inputs {
		logger.Debug("Binding input.", "input", name)
		if err := guard(func() error { return op.SetInput(name, sources[name]) }); err != nil {
			return nil, &grapherr.NodeExecutionError{
				NodeID:   n.ID,
				Operator: n.Operator,
				Cause:    fmt.Errorf("binding input %q: %w", name, err),
			}
		}
	}

	var out node.Artifact
	err = guard(func() error {
		var err error
		out, err = op.Output(ctx)
		return err
	})
	if err != nil {
		return nil, &grapherr.NodeExecutionError{NodeID: n.ID, Operator: n.Operator, Cause: err}
	}
	return out, nil
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/opgraph/internal/binder"
	"github.com/vk/opgraph/internal/config"
	"github.com/vk/opgraph/internal/dag"
	"github.com/vk/opgraph/internal/evaluator"
	"github.com/vk/opgraph/internal/graph"
	"github.com/vk/opgraph/internal/grapherr"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/scheduler"
	"github.com/vk/opgraph/internal/validation"
)

// ErrIncomplete is returned by Run with FailOnError when some node was left
// without an artifact.
var ErrIncomplete = errors.New("evaluation incomplete")

// LoadGraph reads every configured graph file and builds the graph.
func (a *App) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	ctx = a.withLogger(ctx)

	model, err := config.Load(ctx, a.loaders, a.config.GraphPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	g, err := model.BuildGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	a.logger.Info("Graph loaded.", "nodes", g.NodeCount())
	return g, nil
}

// Validation is the outcome of validating a graph.
type Validation struct {
	Graph   *graph.Graph
	Results map[nodeid.ID]validation.Result
	Tracker *validation.Tracker
}

// Count returns the number of nodes in status s.
func (v *Validation) Count(s node.Status) int {
	return len(v.Tracker.WithStatus(s))
}

// Validate loads the graph and derives every node's status.
func (a *App) Validate(ctx context.Context) (*Validation, error) {
	g, err := a.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	return a.validate(a.withLogger(ctx), g), nil
}

func (a *App) validate(ctx context.Context, g *graph.Graph) *Validation {
	results := validation.New(a.registry).Validate(ctx, g)
	tracker := validation.NewTracker()
	tracker.Revalidate(results)

	for _, id := range g.IDs() {
		r := results[id]
		switch r.Status {
		case node.Error:
			a.logger.Warn("Node failed validation.", "node", id.String(), "error", r.Err())
		case node.Incomplete:
			a.logger.Info("Node is incomplete.", "node", id.String(), "error", r.Err())
		}
	}
	v := &Validation{Graph: g, Results: results, Tracker: tracker}
	a.logger.Info("Graph validated.",
		"validated", v.Count(node.Validated),
		"incomplete", v.Count(node.Incomplete),
		"error", v.Count(node.Error),
	)
	return v
}

// Result is the outcome of a run.
type Result struct {
	Validation *Validation
	Evaluation *evaluator.Context
	Report     *scheduler.Report
}

// Run executes the main application logic: load the graph, validate it,
// evaluate it to a fixed point and report.
func (a *App) Run(ctx context.Context) (*Result, error) {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthcheckServer(ctx); err != nil {
		return nil, err
	}
	defer a.closeHealthcheckServer()

	g, err := a.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	v := a.validate(ctx, g)

	bind := binder.New(a.registry, binder.WithMetrics(a.metrics))
	ec, err := evaluator.New(g, bind, evaluator.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}

	opts := []scheduler.Option{scheduler.WithWorkers(a.config.WorkerCount)}
	if a.config.SkipInvalid {
		opts = append(opts, scheduler.WithStatuses(v.Tracker))
	}

	a.logger.Info("Starting evaluation.", "workers", a.config.WorkerCount)
	report, err := scheduler.New(ec, opts...).Run(ctx)
	result := &Result{Validation: v, Evaluation: ec, Report: report}
	if err != nil {
		return result, fmt.Errorf("evaluation interrupted: %w", err)
	}

	if !report.Complete() && a.config.FailOnError {
		cause := report.Err()
		if cause == nil {
			cause = fmt.Errorf("%d skipped, %d blocked", len(report.Skipped), len(report.Blocked))
		}
		return result, fmt.Errorf("%w: %w", ErrIncomplete, cause)
	}

	a.logger.Debug("App.Run method finished.")
	return result, nil
}

// Inspection describes one node's position in the graph.
type Inspection struct {
	Node        *node.Node
	Ancestors   []nodeid.ID
	Descendants []nodeid.ID
	Levels      [][]nodeid.ID
}

// Inspect loads the graph and reports the dependency closures of id along
// with the graph's dependency levels.
func (a *App) Inspect(ctx context.Context, id nodeid.ID) (*Inspection, error) {
	g, err := a.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	n, ok := g.FindNode(id)
	if !ok {
		return nil, &grapherr.UnknownNodeError{ID: id}
	}

	ancestors, err := dag.Ancestors(g, id)
	if err != nil {
		return nil, err
	}
	levels, err := dag.Levels(g)
	if err != nil {
		return nil, err
	}
	return &Inspection{
		Node:        n,
		Ancestors:   ancestors,
		Descendants: dag.Descendants(g, id).Sorted(),
		Levels:      levels,
	}, nil
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/opgraph/internal/ctxlog"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
	"golang.org/x/sync/errgroup"
)

// Evaluator is the part of the evaluator the scheduler drives.
// *evaluator.Context implements it.
type Evaluator interface {
	Pending() []nodeid.ID
	Evaluate(ctx context.Context, id nodeid.ID) (bool, error)
}

// StatusSource provides advisory validation statuses.
// *validation.Tracker implements it.
type StatusSource interface {
	Status(id nodeid.ID) (node.Status, bool)
}

// Scheduler runs an evaluator to a fixed point.
type Scheduler struct {
	eval     Evaluator
	statuses StatusSource
	workers  int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers bounds the number of concurrent evaluations. Values below one
// mean one.
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = max(n, 1) }
}

// WithStatuses makes the scheduler skip nodes whose status is node.Error.
func WithStatuses(src StatusSource) Option {
	return func(s *Scheduler) { s.statuses = src }
}

// New creates a scheduler for eval with a single worker by default.
func New(eval Evaluator, opts ...Option) *Scheduler {
	s := &Scheduler{eval: eval, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run evaluates pending nodes until all are computed or a pass makes no
// progress. Per-node failures are collected in the report and do not make
// Run fail; the returned error is non-nil only when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Failed: make(map[nodeid.ID]error)}
	logger := ctxlog.FromContext(ctx).With("run", report.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("Evaluation run started.", "workers", s.workers)

	skipped := nodeid.NewSet()
	var mu sync.Mutex

	for {
		if ctx.Err() != nil {
			break
		}

		var batch []nodeid.ID
		for _, id := range s.eval.Pending() {
			if _, failed := report.Failed[id]; failed || skipped.Has(id) {
				continue
			}
			if s.hasError(id) {
				skipped.Add(id)
				logger.Debug("Skipping node in error status.", "node", id.String())
				continue
			}
			batch = append(batch, id)
		}
		if len(batch) == 0 {
			break
		}

		report.Passes++
		var progress atomic.Int64
		var eg errgroup.Group
		eg.SetLimit(s.workers)
		for _, id := range batch {
			if ctx.Err() != nil {
				break
			}
			eg.Go(func() error {
				// Queued behind the worker limit while the run was cancelled.
				if ctx.Err() != nil {
					return nil
				}
				ok, err := s.eval.Evaluate(ctx, id)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil && ctx.Err() != nil:
					// Cancelled while waiting; the node stays pending.
				case err != nil:
					report.Failed[id] = err
					logger.Error("Node evaluation failed.", "node", id.String(), "error", err)
				case ok:
					report.Computed = append(report.Computed, id)
					progress.Add(1)
				}
				return nil
			})
		}
		_ = eg.Wait()

		logger.Debug("Evaluation pass finished.", "pass", report.Passes, "batch", len(batch), "computed", progress.Load())
		if progress.Load() == 0 {
			break
		}
	}

	report.finish(s.eval.Pending(), skipped, start)
	if err := ctx.Err(); err != nil {
		logger.Warn("Evaluation run cancelled.", "error", err)
		return report, err
	}
	logger.Info("Evaluation run finished.",
		"passes", report.Passes,
		"computed", len(report.Computed),
		"failed", len(report.Failed),
		"skipped", len(report.Skipped),
		"blocked", len(report.Blocked),
		"duration", report.Duration,
	)
	return report, nil
}

func (s *Scheduler) hasError(id nodeid.ID) bool {
	if s.statuses == nil {
		return false
	}
	st, ok := s.statuses.Status(id)
	return ok && st == node.Error
}

// Report summarises one run.
type Report struct {
	RunID  string
	Passes int
	// Computed lists the nodes that gained an artifact during the run.
	Computed []nodeid.ID
	Failed   map[nodeid.ID]error
	// Skipped lists nodes left out because their status is error.
	Skipped []nodeid.ID
	// Blocked lists nodes still pending that neither failed nor were skipped,
	// typically descendants of a failed or skipped node.
	Blocked  []nodeid.ID
	Duration time.Duration
}

func (r *Report) finish(pending []nodeid.ID, skipped nodeid.Set, start time.Time) {
	nodeid.Sort(r.Computed)
	r.Skipped = skipped.Sorted()
	r.Blocked = nil
	for _, id := range pending {
		if _, failed := r.Failed[id]; !failed && !skipped.Has(id) {
			r.Blocked = append(r.Blocked, id)
		}
	}
	nodeid.Sort(r.Blocked)
	r.Duration = time.Since(start)
}

// Complete reports whether every node ended up with an artifact.
func (r *Report) Complete() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0 && len(r.Blocked) == 0
}

// Err joins the per-node failures in node id order, or returns nil.
func (r *Report) Err() error {
	ids := make([]nodeid.ID, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	nodeid.Sort(ids)
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, r.Failed[id])
	}
	return errors.Join(errs...)
}

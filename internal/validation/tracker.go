package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/nodeid"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports a manual status change the state machine forbids.
type TransitionError struct {
	ID       nodeid.ID
	From, To node.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("node '%s': cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Tracker holds the current status of every node.
//
// Allowed manual transitions are incomplete→validated, incomplete→error and
// validated→error. Error is terminal for Mark; only Revalidate, which replaces
// every status with a freshly derived one, can leave it. Nodes the tracker has
// never seen are incomplete.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[nodeid.ID]node.Status
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[nodeid.ID]node.Status)}
}

// Status returns id's status and whether the tracker knows id.
func (t *Tracker) Status(id nodeid.ID) (node.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[id]
	return s, ok
}

func allowed(from, to node.Status) bool {
	switch from {
	case node.Incomplete:
		return to == node.Validated || to == node.Error
	case node.Validated:
		return to == node.Error
	}
	return false
}

// Mark moves id to status to. Marking the current status again is a no-op.
// It reports whether the status changed.
func (t *Tracker) Mark(id nodeid.ID, to node.Status) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, ok := t.statuses[id]
	if !ok {
		from = node.Incomplete
	}
	if ok && from == to {
		return false, nil
	}
	if !ok && to == node.Incomplete {
		t.statuses[id] = to
		return true, nil
	}
	if !allowed(from, to) {
		return false, &TransitionError{ID: id, From: from, To: to}
	}
	t.statuses[id] = to
	return true, nil
}

// Revalidate replaces all statuses with results. It returns the ids whose
// status changed, appeared or disappeared, sorted.
func (t *Tracker) Revalidate(results map[nodeid.ID]Result) []nodeid.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := nodeid.NewSet()
	for id, r := range results {
		if old, ok := t.statuses[id]; !ok || old != r.Status {
			changed.Add(id)
		}
	}
	for id := range t.statuses {
		if _, ok := results[id]; !ok {
			changed.Add(id)
		}
	}

	t.statuses = make(map[nodeid.ID]node.Status, len(results))
	for id, r := range results {
		t.statuses[id] = r.Status
	}
	return changed.Sorted()
}

// WithStatus lists the ids currently in status s, sorted.
func (t *Tracker) WithStatus(s node.Status) []nodeid.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []nodeid.ID
	for id, st := range t.statuses {
		if st == s {
			ids = append(ids, id)
		}
	}
	nodeid.Sort(ids)
	return ids
}

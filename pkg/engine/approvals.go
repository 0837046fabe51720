package engine

import (
	"context"
	"sort"

	"github.com/looperhq/looper/pkg/action"
)

// PendingApproval is a HITL-suspended recommendation awaiting an
// operator decision.
type PendingApproval struct {
	ID             uint64             `json:"id"`
	Recommendation action.Recommended `json:"recommendation"`
}

// approvalRegistry holds suspended recommendations keyed by monotonic
// id. Guarded by the engine mutex.
type approvalRegistry struct {
	nextID  uint64
	pending map[uint64]action.Recommended
}

func newApprovalRegistry() *approvalRegistry {
	return &approvalRegistry{
		nextID:  1,
		pending: make(map[uint64]action.Recommended),
	}
}

func (r *approvalRegistry) add(rec action.Recommended) uint64 {
	id := r.nextID
	r.nextID++
	r.pending[id] = rec
	return id
}

// take removes and returns the recommendation for the id.
func (r *approvalRegistry) take(id uint64) (action.Recommended, bool) {
	rec, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return rec, ok
}

func (r *approvalRegistry) remove(id uint64) bool {
	_, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return ok
}

func (r *approvalRegistry) count() int {
	return len(r.pending)
}

// snapshot returns the pending approvals sorted by id ascending.
func (r *approvalRegistry) snapshot() []PendingApproval {
	out := make([]PendingApproval, 0, len(r.pending))
	for id, rec := range r.pending {
		out = append(out, PendingApproval{ID: id, Recommendation: rec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingApprovals returns the suspended recommendations, id ascending.
func (e *Engine) PendingApprovals() []PendingApproval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvals.snapshot()
}

// Approve removes the pending approval and re-dispatches it with only
// the HITL gate bypassed; denylist, allowlist, rate limit, and kind
// checks still apply.
func (e *Engine) Approve(ctx context.Context, id uint64) (action.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.approvals.take(id)
	if !ok {
		return action.ExecutionResult{}, ErrUnknownApproval
	}

	res, err := e.dispatchLocked(ctx, rec, true)
	if err != nil {
		return action.ExecutionResult{}, err
	}
	if res.Status == action.StatusDenied {
		e.counters.IncFailedToolExecutions()
		e.metrics.RecordFailedToolExecution(ctx)
	}
	return res, nil
}

// Deny discards the pending approval, reporting whether it existed.
func (e *Engine) Deny(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.approvals.remove(id)
}

package depcoord

import "context"

// reasonKind discriminates the variants of RefreshReason.
type reasonKind int

const (
	reasonMissingDependency reasonKind = iota
	reasonTaskRequiredUpdate
)

// RefreshReason tells the refresh function why it was triggered: either the
// coordinator holds no dependency (none was ever set, or it was cleared), or
// a task declared the current one stale.
type RefreshReason[D any] struct {
	kind  reasonKind
	prior D
}

// MissingDependency builds a RefreshReason reporting that the coordinator
// holds no dependency.
func MissingDependency[D any]() RefreshReason[D] {
	return RefreshReason[D]{kind: reasonMissingDependency}
}

// TaskRequiredUpdate builds a RefreshReason reporting that a task observed
// the given dependency value as stale.
func TaskRequiredUpdate[D any](prior D) RefreshReason[D] {
	return RefreshReason[D]{kind: reasonTaskRequiredUpdate, prior: prior}
}

// IsMissingDependency reports whether the coordinator held no dependency
// when the refresh was triggered.
func (r RefreshReason[D]) IsMissingDependency() bool {
	return r.kind == reasonMissingDependency
}

// PriorDependency returns the dependency value a task reported as stale,
// and true if the reason is TaskRequiredUpdate.
func (r RefreshReason[D]) PriorDependency() (D, bool) {
	if r.kind == reasonTaskRequiredUpdate {
		return r.prior, true
	}
	var zero D
	return zero, false
}

// RefreshContext is passed to a RefreshFunc on every triggering.
type RefreshContext[D any] struct {
	// Attempt counts refresh attempts within this triggering. It resets to
	// 0 after any terminal refresh outcome, so under the coordinator's
	// control flow it is never observed above 1 (see DESIGN.md, Open
	// Question 1) — kept in the contract rather than removed, since the
	// spec this is built against instructs implementers to preserve it.
	Attempt uint32

	// Reason discriminates why this refresh was triggered.
	Reason RefreshReason[D]

	// Ctx is derived from the context.Context passed to the Run call that
	// triggered this refresh. It is the idiomatic Go substitute for the
	// cooperative-cancellation semantics the abstract design assumes are
	// implicit in the runtime; a refresh function that suspends should
	// select on Ctx.Done() and return RefreshCancelled if it fires.
	Ctx context.Context
}

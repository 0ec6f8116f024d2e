package depcoord

// taskKind discriminates the variants of TaskOutcome.
type taskKind int

const (
	taskSuccess taskKind = iota
	taskFailure
	taskCancelled
	taskRefreshDependency
)

// TaskOutcome is the result a user-supplied task function reports back to
// the coordinator after inspecting a dependency snapshot. Exactly one of
// the constructors below should be used to build one; the zero value is not
// a valid outcome.
type TaskOutcome[S any] struct {
	kind   taskKind
	value  S
	err    error
	origin bool
}

// TaskSuccess reports that the task completed with a result.
func TaskSuccess[S any](value S) TaskOutcome[S] {
	return TaskOutcome[S]{kind: taskSuccess, value: value}
}

// TaskFailure reports that the task failed for a reason unrelated to
// dependency staleness. The coordinator does not retry on failure.
func TaskFailure[S any](err error) TaskOutcome[S] {
	return TaskOutcome[S]{kind: taskFailure, err: err}
}

// TaskCancelled reports that the task observed its own cancellation.
// origin records whether the cancellation was seen on the task's own code
// path; the coordinator always surfaces a task-reported cancellation as
// origin:true in the FinalOutcome, since by construction a running task is
// always on the caller's direct path (see Run).
func TaskCancelled[S any](origin bool) TaskOutcome[S] {
	return TaskOutcome[S]{kind: taskCancelled, origin: origin}
}

// NeedsRefresh declares that the dependency snapshot the task just consumed
// is stale and should be refreshed before being retried.
func NeedsRefresh[S any]() TaskOutcome[S] {
	return TaskOutcome[S]{kind: taskRefreshDependency}
}

// refreshKind discriminates the variants of RefreshOutcome.
type refreshKind int

const (
	refreshSuccess refreshKind = iota
	refreshFailure
	refreshCancelled
)

// RefreshOutcome is the result a user-supplied refresh function reports
// back to the coordinator.
type RefreshOutcome[D any] struct {
	kind   refreshKind
	value  D
	err    error
	origin bool
}

// RefreshSuccess reports a freshly minted dependency value.
func RefreshSuccess[D any](value D) RefreshOutcome[D] {
	return RefreshOutcome[D]{kind: refreshSuccess, value: value}
}

// RefreshFailure reports that the refresh could not produce a new value.
func RefreshFailure[D any](err error) RefreshOutcome[D] {
	return RefreshOutcome[D]{kind: refreshFailure, err: err}
}

// RefreshCancelled reports that the refresh was cancelled before it could
// complete. origin is carried for API symmetry with TaskOutcome and
// FinalOutcome; the coordinator always fans RefreshCancelled out as
// origin:true to the originator and origin:false to waiters (§4.3 of the
// design), regardless of what the refresh function reports here.
func RefreshCancelled[D any](origin bool) RefreshOutcome[D] {
	return RefreshOutcome[D]{kind: refreshCancelled, origin: origin}
}

// Success returns the minted value and true if the outcome is a success.
func (r RefreshOutcome[D]) Success() (D, bool) {
	if r.kind == refreshSuccess {
		return r.value, true
	}
	var zero D
	return zero, false
}

// Failure returns the error and true if the outcome is a failure.
func (r RefreshOutcome[D]) Failure() (error, bool) {
	if r.kind == refreshFailure {
		return r.err, true
	}
	return nil, false
}

// Cancelled reports whether the outcome is a cancellation.
func (r RefreshOutcome[D]) Cancelled() bool {
	return r.kind == refreshCancelled
}

// finalKind discriminates the variants of FinalOutcome.
type finalKind int

const (
	finalSuccess finalKind = iota
	finalFailure
	finalCancelled
)

// FinalOutcome is the verdict Run returns to its caller: the result after
// up to one refresh-triggered retry. origin distinguishes a result produced
// on the caller's own direct path (true) from one inherited from a refresh
// triggered by a different, concurrent caller (false).
type FinalOutcome[S any] struct {
	kind   finalKind
	value  S
	err    error
	origin bool
}

func successFinal[S any](value S) FinalOutcome[S] {
	return FinalOutcome[S]{kind: finalSuccess, value: value}
}

func failureFinal[S any](err error, origin bool) FinalOutcome[S] {
	return FinalOutcome[S]{kind: finalFailure, err: err, origin: origin}
}

func cancelledFinal[S any](origin bool) FinalOutcome[S] {
	return FinalOutcome[S]{kind: finalCancelled, origin: origin}
}

// Success returns the result and true if the outcome is a success.
func (f FinalOutcome[S]) Success() (S, bool) {
	if f.kind == finalSuccess {
		return f.value, true
	}
	var zero S
	return zero, false
}

// Failure returns the error, whether the failure was on the caller's own
// path, and true if the outcome is a failure.
func (f FinalOutcome[S]) Failure() (error, bool, bool) {
	if f.kind == finalFailure {
		return f.err, f.origin, true
	}
	return nil, false, false
}

// Cancelled returns whether the cancellation was on the caller's own path,
// and true if the outcome is a cancellation.
func (f FinalOutcome[S]) Cancelled() (bool, bool) {
	if f.kind == finalCancelled {
		return f.origin, true
	}
	return false, false
}

// IsSuccess reports whether the outcome is a success.
func (f FinalOutcome[S]) IsSuccess() bool { return f.kind == finalSuccess }

// IsFailure reports whether the outcome is a failure.
func (f FinalOutcome[S]) IsFailure() bool { return f.kind == finalFailure }

// IsCancelled reports whether the outcome is a cancellation.
func (f FinalOutcome[S]) IsCancelled() bool { return f.kind == finalCancelled }

// Origin reports whether this outcome arose from the caller's own direct
// path (true) or was inherited from a shared refresh (false). It is only
// meaningful for Failure and Cancelled outcomes.
func (f FinalOutcome[S]) Origin() bool { return f.origin }

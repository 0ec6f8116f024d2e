package depcoord

import "context"

// Run submits one task to the coordinator and blocks until a final verdict
// is available: the task's result, a failure (the task's own or an
// inherited refresh failure), or a cancellation (the caller's own or an
// inherited refresh cancellation).
//
// Run is a free function, not a method on *Coordinator[D], because a Go
// method cannot introduce a type parameter beyond its receiver's — S here
// is inferred from task and varies call to call, while D is fixed for the
// lifetime of the Coordinator. This mirrors the teacher's own
// Resolve[T any](s *Scope, exec *Executor[T]) shape (scope.go): the
// container is passed as a plain argument so the free function can carry
// its own type parameter.
//
// The per-call and global-refresh state machines are both implemented as a
// single loop rather than recursion, per the teacher's own precedent for
// converting recursive graph traversal into an explicit loop
// (graph.go, FindDependents: "Use explicit stack instead of recursion...
// prevent stack overflow"). Every "re-enter run" and "retry" in the design
// becomes a `continue`; every terminal verdict becomes a `return`.
func Run[D, S any](c *Coordinator[D], ctx context.Context, task TaskFunc[D, S]) FinalOutcome[S] {
	for {
		c.mu.Lock()

		if ctxDone(ctx) {
			c.mu.Unlock()
			return cancelledFinal[S](true)
		}

		if c.isRefreshing {
			w := c.pool.acquire()
			c.waiters.enqueue(w)
			queueLen := len(c.waiters.items)
			c.mu.Unlock()
			c.hook.OnWaiterParked(queueLen)

			msg, ownCancellation := c.parkUntilResumed(ctx, w)
			c.pool.release(w)
			if ownCancellation {
				return cancelledFinal[S](true)
			}

			switch msg.kind {
			case resumeRetry:
				c.hook.OnWaiterResumed("retry")
				continue
			case resumeFailure:
				c.hook.OnWaiterResumed("failure")
				return failureFinal[S](msg.err, false)
			default: // resumeCancelled
				c.hook.OnWaiterResumed("cancelled")
				return cancelledFinal[S](false)
			}
		}

		if c.dependency == nil {
			result, retry := c.triggerRefresh(ctx, MissingDependency[D]())
			if retry {
				continue
			}
			return refreshTerminalToFinal[S](result)
		}

		dSnapshot := *c.dependency
		vSnapshot := c.version
		c.mu.Unlock()

		c.hook.OnTaskStart(vSnapshot)
		outcome := task(dSnapshot)

		c.mu.Lock()
		switch outcome.kind {
		case taskSuccess:
			c.refreshAttempt = 0
			c.mu.Unlock()
			c.hook.OnTaskEnd(vSnapshot, "success", nil)
			if ctxDone(ctx) {
				return cancelledFinal[S](true)
			}
			return successFinal(outcome.value)

		case taskFailure:
			c.refreshAttempt = 0
			c.mu.Unlock()
			c.hook.OnTaskEnd(vSnapshot, "failure", outcome.err)
			return failureFinal[S](taskError(outcome.err), true)

		case taskCancelled:
			c.refreshAttempt = 0
			c.mu.Unlock()
			c.hook.OnTaskEnd(vSnapshot, "cancelled", nil)
			return cancelledFinal[S](true)

		default: // taskRefreshDependency
			c.hook.OnTaskEnd(vSnapshot, "refresh_dependency", nil)
			if c.isRefreshing || vSnapshot < c.version {
				// A refresh is already in flight, or one completed after
				// our snapshot was taken: re-dispatch without triggering a
				// second refresh (spec invariant 5 / §4.2 Classify).
				c.mu.Unlock()
				continue
			}
			result, retry := c.triggerRefresh(ctx, TaskRequiredUpdate(dSnapshot))
			if retry {
				continue
			}
			return refreshTerminalToFinal[S](result)
		}
	}
}

// refreshResult is the non-generic verdict of a single refresh triggering,
// carried back up to the generic Run loop so it can build a FinalOutcome[S]
// without triggerRefresh itself needing a second type parameter.
type refreshResult struct {
	kind refreshKind
	err  error
}

// triggerRefresh implements §4.3 of the design: it must be called while c.mu
// is held and c.isRefreshing is false. It returns (zero, true) when the
// refresh succeeded — the caller should loop back to the top of Run and
// retry against the new dependency — or a terminal refreshResult and false
// otherwise. In every case triggerRefresh itself releases c.mu before
// returning.
func (c *Coordinator[D]) triggerRefresh(ctx context.Context, reason RefreshReason[D]) (refreshResult, bool) {
	c.isRefreshing = true
	c.refreshAttempt++
	attempt := c.refreshAttempt
	rctx := RefreshContext[D]{Attempt: attempt, Reason: reason, Ctx: ctx}
	c.mu.Unlock()

	c.hook.OnRefreshStart(attempt, reason.IsMissingDependency())
	outcome := c.refresh(rctx)

	c.mu.Lock()
	switch outcome.kind {
	case refreshSuccess:
		newDep := outcome.value
		c.dependency = &newDep
		c.version++
		c.refreshAttempt = 0
		c.isRefreshing = false
		waiters := c.waiters.drain()
		c.mu.Unlock()

		c.hook.OnRefreshEnd(attempt, "success", nil)
		// Fan out to waiters before the originator's own retry is allowed
		// to proceed, so the originator never observes isRefreshing=false
		// and races a fresh refresh while waiters are still pending
		// (ordering guarantee ii, §5). The sends themselves are
		// non-blocking (buffered channels), so this does not hold up the
		// originator (ordering guarantee iii).
		resumeAll(waiters, resumeMsg{kind: resumeRetry})
		return refreshResult{}, true

	case refreshFailure:
		c.refreshAttempt = 0
		c.isRefreshing = false
		waiters := c.waiters.drain()
		c.mu.Unlock()

		c.hook.OnRefreshEnd(attempt, "failure", outcome.err)
		resumeAll(waiters, resumeMsg{kind: resumeFailure, err: outcome.err})
		return refreshResult{kind: refreshFailure, err: refreshError(outcome.err)}, false

	default: // refreshCancelled
		c.refreshAttempt = 0
		c.isRefreshing = false
		waiters := c.waiters.drain()
		c.mu.Unlock()

		c.hook.OnRefreshEnd(attempt, "cancelled", nil)
		resumeAll(waiters, resumeMsg{kind: resumeCancelled})
		return refreshResult{kind: refreshCancelled}, false
	}
}

// parkUntilResumed waits for either the waiter's one-shot resume or the
// caller's own context to fire, whichever comes first — the "parking a
// waiter" suspension point where cancellation is checked (design §5). On
// the caller's own cancellation it attempts to eagerly remove the waiter
// from the queue (the optimization the design explicitly allows, "provided
// FIFO fairness among survivors is preserved" — slice removal keeps the
// relative order of the remaining waiters intact). If the waiter was
// concurrently resumed before removal could happen, that delivered result
// is honored instead of the caller's own cancellation.
func (c *Coordinator[D]) parkUntilResumed(ctx context.Context, w *waiter) (resumeMsg, bool) {
	select {
	case msg := <-w.ch:
		return msg, false
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.waiters.remove(w)
		c.mu.Unlock()
		if removed {
			return resumeMsg{}, true
		}
		return <-w.ch, false
	}
}

func refreshTerminalToFinal[S any](r refreshResult) FinalOutcome[S] {
	if r.kind == refreshFailure {
		return failureFinal[S](r.err, true)
	}
	return cancelledFinal[S](true)
}

func ctxDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

package depcoord

import "sync"

// waiterPool reuses waiter structs across parks, mirroring the teacher's
// PoolManager (pool_manager.go), which pools ResolveCtx/ExecutionCtx values
// for the same reason: these are short-lived, allocated on a hot path (every
// call that arrives during a refresh), and their shape never changes across
// reuses. Unlike PoolManager this pool exposes no hit/miss counters — see
// DESIGN.md for why that telemetry was dropped.
type waiterPool struct {
	pool sync.Pool
}

func newWaiterPool() *waiterPool {
	return &waiterPool{
		pool: sync.Pool{
			New: func() any {
				return &waiter{ch: make(chan resumeMsg, 1)}
			},
		},
	}
}

// acquire returns a waiter ready to be enqueued. Its channel is guaranteed
// empty.
func (p *waiterPool) acquire() *waiter {
	w := p.pool.Get().(*waiter)
	return w
}

// release returns w to the pool once it has been resumed and its result
// observed. Calling release before the waiter is resumed would let a
// future reuse of the channel race with a delayed resume() from the
// original triggering; callers must only release after receiving from
// w.ch.
func (p *waiterPool) release(w *waiter) {
	p.pool.Put(w)
}

package depcoord

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Coordinator serializes refreshes of a single dependency value D across
// arbitrarily many concurrent Run callers. All state below is mutated only
// while holding mu; the user-supplied task and refresh functions always run
// with mu released, following the single-owner-actor discipline the teacher
// applies to Scope (scope.go: "s.mu sync.RWMutex" guarding shared state,
// with the user factory invoked outside the lock).
//
// Construct one with New and submit work with the free function Run.
type Coordinator[D any] struct {
	mu sync.Mutex

	dependency     *D
	version        uint64
	isRefreshing   bool
	refreshAttempt uint32
	waiters        waiterQueue

	refresh RefreshFunc[D]
	hook    multiHook
	pool    *waiterPool
}

// RefreshFunc produces a fresh dependency value. It must terminate
// (success, failure, or cancellation observed via RefreshContext.Ctx); it
// must not call Run on the same Coordinator — reentrancy is not supported
// and would deadlock against the very refresh it is waiting on.
type RefreshFunc[D any] func(RefreshContext[D]) RefreshOutcome[D]

// TaskFunc is a unit of work a caller submits via Run. It must not mutate
// Coordinator state; returning NeedsRefresh declares that the dependency
// value just consumed was stale.
type TaskFunc[D, S any] func(D) TaskOutcome[S]

// Option configures a Coordinator at construction time.
type Option[D any] func(*Coordinator[D])

// WithLogger attaches a hclog.Logger that the coordinator logs its
// lifecycle through (refresh attempts/outcomes, parking/resuming waiters,
// task classification).
func WithLogger[D any](log hclog.Logger) Option[D] {
	return func(c *Coordinator[D]) {
		c.hook.hooks = append(c.hook.hooks, newLoggingHook(log))
	}
}

// WithHooks registers additional Hooks, in order, alongside any logger
// configured via WithLogger.
func WithHooks[D any](hooks ...Hook) Option[D] {
	return func(c *Coordinator[D]) {
		c.hook.hooks = append(c.hook.hooks, hooks...)
	}
}

// New constructs a Coordinator with an optional initial dependency and the
// refresh function that will be used to produce new ones. No background
// work is started.
func New[D any](initial *D, refresh RefreshFunc[D], opts ...Option[D]) *Coordinator[D] {
	c := &Coordinator[D]{
		refresh: refresh,
		pool:    newWaiterPool(),
	}
	if initial != nil {
		d := *initial
		c.dependency = &d
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetDependency replaces the stored dependency without running a refresh.
// It does not change Version — callers who branch on Version through a task
// closure should treat an externally injected value as equivalent to a
// refresh for their own bookkeeping, since the coordinator itself does not
// distinguish the two beyond leaving the version counter untouched here.
//
// Calling SetDependency(d) twice in succession leaves the coordinator
// observationally identical to calling it once (spec invariant: idempotent
// set_dependency) — both calls simply store the same value.
func SetDependency[D any](c *Coordinator[D], dep *D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dep == nil {
		c.dependency = nil
		return
	}
	d := *dep
	c.dependency = &d
}

// Peek returns the currently stored dependency without resolving or
// refreshing it, and reports whether one is present.
func (c *Coordinator[D]) Peek() (D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dependency == nil {
		var zero D
		return zero, false
	}
	return *c.dependency, true
}

// Version returns the current refresh version. It starts at 0 and
// increments by one on every successful refresh.
func (c *Coordinator[D]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// IsRefreshing reports whether a refresh is currently in flight.
func (c *Coordinator[D]) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRefreshing
}

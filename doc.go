// Package depcoord provides a dependency-gated task coordinator.
//
// A Coordinator[D] guarantees that concurrent callers of Run see a valid
// dependency D (the canonical example is an OAuth access token), that at
// most one refresh of D is ever in flight, and that a task which reports
// the dependency as stale is transparently retried once against a freshly
// refreshed value.
//
// # Basic usage
//
// Construct a coordinator with an optional initial dependency and a refresh
// function:
//
//	coord := depcoord.New[string](nil, func(rctx depcoord.RefreshContext[string]) depcoord.RefreshOutcome[string] {
//	    tok, err := mintToken(rctx.Ctx)
//	    if err != nil {
//	        return depcoord.RefreshFailure[string](err)
//	    }
//	    return depcoord.RefreshSuccess(tok)
//	})
//
// Submit work with Run, passing a task that inspects the dependency and
// reports whether it was stale:
//
//	result := depcoord.Run(coord, ctx, func(tok string) depcoord.TaskOutcome[int] {
//	    n, err := callAPI(tok)
//	    if isUnauthorized(err) {
//	        return depcoord.NeedsRefresh[int]()
//	    }
//	    if err != nil {
//	        return depcoord.TaskFailure[int](err)
//	    }
//	    return depcoord.TaskSuccess(n)
//	})
//
// Run is a free function, not a method on Coordinator, because a method
// cannot introduce its own type parameter beyond the receiver's: D is fixed
// per Coordinator, S (the task's result type) is supplied per call.
//
// # Single dependency only
//
// A Coordinator manages exactly one dependency slot. Coordinating several
// independent refreshable dependencies is out of scope; run one Coordinator
// per dependency.
package depcoord

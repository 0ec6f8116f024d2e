package depcoord

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// singleFlightGuard fails the test the instant more than one refresh call is
// in flight at once — invariant 1, "single-flight refresh".
type singleFlightGuard struct {
	t        *testing.T
	inFlight atomic.Int32
}

func (g *singleFlightGuard) enter() {
	if g.inFlight.Add(1) > 1 {
		g.t.Errorf("refresh callable entered while another refresh was already in flight")
	}
}

func (g *singleFlightGuard) exit() {
	g.inFlight.Add(-1)
}

func TestScenario2_SingleRefreshUnderContention(t *testing.T) {
	guard := &singleFlightGuard{t: t}
	var refreshCalls atomic.Int32
	c := New[string](nil, func(RefreshContext[string]) RefreshOutcome[string] {
		guard.enter()
		defer guard.exit()
		refreshCalls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return RefreshSuccess("uuid-A")
	})

	const n = 100
	var wg sync.WaitGroup
	successes := atomic.Int32{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := Run(c, context.Background(), func(dep string) TaskOutcome[string] {
				return TaskSuccess(strconv.Itoa(i))
			})
			if _, ok := outcome.Success(); ok {
				successes.Add(1)
			} else {
				t.Errorf("caller %d did not receive Success", i)
			}
		}(i)
	}
	wg.Wait()

	if refreshCalls.Load() != 1 {
		t.Errorf("expected refresh to be entered exactly once, got %d", refreshCalls.Load())
	}
	if int(successes.Load()) != n {
		t.Errorf("expected all %d callers to succeed, got %d", n, successes.Load())
	}
}

func TestScenario3_StaleThenRetry(t *testing.T) {
	var refreshCalls atomic.Int32
	c := New[string](nil, func(rctx RefreshContext[string]) RefreshOutcome[string] {
		n := refreshCalls.Add(1)
		if n == 1 {
			return RefreshSuccess("uuid-A")
		}
		return RefreshSuccess("uuid-B")
	})

	var results []string

	// task 1
	out := Run(c, context.Background(), func(dep string) TaskOutcome[string] {
		if dep != "uuid-A" {
			t.Errorf("task 1: expected uuid-A, got %q", dep)
		}
		return TaskSuccess("h1")
	})
	v, _ := out.Success()
	results = append(results, v)

	// task 2
	out = Run(c, context.Background(), func(dep string) TaskOutcome[string] {
		if dep != "uuid-A" {
			t.Errorf("task 2: expected uuid-A, got %q", dep)
		}
		return TaskSuccess("h2")
	})
	v, _ = out.Success()
	results = append(results, v)

	// task 3: reports stale, forcing a second refresh, then retries.
	calls3 := 0
	out = Run(c, context.Background(), func(dep string) TaskOutcome[string] {
		calls3++
		if calls3 == 1 {
			if dep != "uuid-A" {
				t.Errorf("task 3 (first pass): expected uuid-A, got %q", dep)
			}
			return NeedsRefresh[string]()
		}
		if dep != "uuid-B" {
			t.Errorf("task 3 (retry): expected uuid-B, got %q", dep)
		}
		return TaskSuccess("h3")
	})
	v, _ = out.Success()
	results = append(results, v)

	// task 4
	out = Run(c, context.Background(), func(dep string) TaskOutcome[string] {
		if dep != "uuid-B" {
			t.Errorf("task 4: expected uuid-B, got %q", dep)
		}
		return TaskSuccess("h4")
	})
	v, _ = out.Success()
	results = append(results, v)

	expected := []string{"h1", "h2", "h3", "h4"}
	for i, want := range expected {
		if results[i] != want {
			t.Errorf("result[%d] = %q, want %q", i, results[i], want)
		}
	}
	if refreshCalls.Load() != 2 {
		t.Errorf("expected refresh to be entered exactly twice, got %d", refreshCalls.Load())
	}
}

func TestScenario5_StressBruteForce(t *testing.T) {
	guard := &singleFlightGuard{t: t}
	var version atomic.Int64
	c := New[int64](nil, func(RefreshContext[int64]) RefreshOutcome[int64] {
		guard.enter()
		defer guard.exit()
		return RefreshSuccess(version.Add(1))
	})

	const ops = 2000
	var wg sync.WaitGroup
	for i := 0; i < ops; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				// 20%: invalidate the dependency externally.
				SetDependency[int64](c, nil)
				return
			}
			// 80%: run a task that reports staleness whenever its
			// snapshot doesn't match the current token.
			Run(c, context.Background(), func(dep int64) TaskOutcome[int] {
				if dep != version.Load() {
					return NeedsRefresh[int]()
				}
				return TaskSuccess(int(dep))
			})
		}(i)
	}
	wg.Wait()
}

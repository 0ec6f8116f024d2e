package depcoord

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestProperty_WaiterFIFO(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := New[string](nil, func(RefreshContext[string]) RefreshOutcome[string] {
		close(started)
		<-release
		return RefreshSuccess("uuid-A")
	})

	// A separate triggering caller starts the refresh and parks everyone
	// else behind it.
	go Run(c, context.Background(), func(string) TaskOutcome[string] {
		return TaskSuccess("trigger")
	})
	<-started

	const waiters = 10
	var mu sync.Mutex
	var arrivalOrder []int
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Stagger enqueue order by time: caller i starts 2ms after
			// caller i-1, which in practice lets caller i-1 enqueue first.
			time.Sleep(time.Duration(i) * 2 * time.Millisecond)
			Run(c, context.Background(), func(string) TaskOutcome[string] {
				mu.Lock()
				arrivalOrder = append(arrivalOrder, i)
				mu.Unlock()
				return TaskSuccess("ok")
			})
		}(i)
	}

	// Give every waiter time to enqueue before releasing the refresh.
	time.Sleep(time.Duration(waiters) * 2 * time.Millisecond + 20*time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(arrivalOrder); i++ {
		if arrivalOrder[i] < arrivalOrder[i-1] {
			t.Errorf("expected waiters to be resumed in FIFO arrival order, got %v", arrivalOrder)
			break
		}
	}
	if len(arrivalOrder) != waiters {
		t.Fatalf("expected all %d waiters to run their task, got %d", waiters, len(arrivalOrder))
	}
}

func TestProperty_VersionMonotonicity(t *testing.T) {
	// Sequential by construction: each call either triggers a refresh
	// (every third) or succeeds outright, and the version observed at the
	// moment each task runs must never decrease across the run.
	var minted int64
	c := New[int64](nil, func(RefreshContext[int64]) RefreshOutcome[int64] {
		minted++
		return RefreshSuccess(minted)
	})

	var observed []uint64
	for i := 0; i < 30; i++ {
		calls := 0
		Run(c, context.Background(), func(dep int64) TaskOutcome[struct{}] {
			calls++
			observed = append(observed, c.Version())
			if calls == 1 && i%3 == 0 {
				return NeedsRefresh[struct{}]()
			}
			return TaskSuccess(struct{}{})
		})
	}

	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Errorf("version decreased from %d to %d at call %d", observed[i-1], observed[i], i)
		}
	}
}

func TestProperty_EveryCallerTerminates(t *testing.T) {
	c := New[string](nil, alwaysSucceeds("uuid-A"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan FinalOutcome[string], 1)
	go func() {
		done <- Run(c, ctx, func(string) TaskOutcome[string] {
			return TaskSuccess("ok")
		})
	}()

	select {
	case outcome := <-done:
		if outcome.IsSuccess() == outcome.IsFailure() && outcome.IsSuccess() == outcome.IsCancelled() {
			t.Fatalf("expected exactly one of Success/Failure/Cancelled to hold")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate")
	}
}

package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/hackebrot/go-fibonacci"

	"github.com/evan-idocoding/mexec/rt/managed"
)

// maxFibStep bounds the backoff growth; fib(25) is 75025 units.
const maxFibStep = 25

type limit struct {
	managed.Trigger
	n int

	mu    sync.Mutex
	count int
}

// Limit ends the schedule after n executions (runs or skips) of t.
//
// Limit keeps a counter: use one instance per registration.
// n must be > 0; otherwise Limit panics (configuration error).
func Limit(t managed.Trigger, n int) managed.Trigger {
	mustTrigger(t, "Limit")
	if n <= 0 {
		panic(fmt.Sprintf("trigger: Limit(%d) is invalid (must be > 0)", n))
	}
	return &limit{Trigger: t, n: n}
}

func (t *limit) NextRunTime(last *managed.LastExecution, base time.Time) (time.Time, bool) {
	t.mu.Lock()
	if last != nil {
		t.count++
	}
	done := t.count >= t.n
	t.mu.Unlock()
	if done {
		return time.Time{}, false
	}
	return t.Trigger.NextRunTime(last, base)
}

type fib struct {
	unit     time.Duration
	maxDelay time.Duration

	mu       sync.Mutex
	strategy fibonacci.Strategy
	failures int
	delays   []time.Duration // memoized fib(k)*unit, index k
}

// Fibonacci retries a task until it succeeds.
//
// The first run is due at registration. After the k-th consecutive failure the next run is
// due fib(k)*unit after the failed run ended (1, 1, 2, 3, 5, ... units), capped at maxDelay
// when maxDelay > 0. Skipped runs are not failures. The schedule ends after the first success.
//
// Fibonacci keeps a failure counter: use one instance per registration.
func Fibonacci(unit, maxDelay time.Duration) managed.Trigger {
	if unit <= 0 {
		panic(fmt.Sprintf("trigger: Fibonacci unit=%s is invalid (must be > 0)", unit))
	}
	return &fib{
		unit:     unit,
		maxDelay: maxDelay,
		strategy: fibonacci.NewRecursive(),
	}
}

func (t *fib) NextRunTime(last *managed.LastExecution, base time.Time) (time.Time, bool) {
	if last == nil {
		return base, true
	}
	if last.Succeeded() {
		return time.Time{}, false
	}

	t.mu.Lock()
	if last.Started() {
		t.failures++
	}
	d := t.delayLocked(t.failures)
	t.mu.Unlock()

	from := last.RunEnd
	if from.IsZero() {
		from = last.ScheduledStart
	}
	return from.Add(d), true
}

func (*fib) SkipRun(*managed.LastExecution, time.Time) bool { return false }

func (t *fib) delayLocked(k int) time.Duration {
	if k <= 0 {
		k = 1
	}
	if k > maxFibStep {
		k = maxFibStep
	}
	for len(t.delays) <= k {
		step := len(t.delays)
		t.delays = append(t.delays, time.Duration(t.strategy.Compute(step))*t.unit)
	}
	d := t.delays[k]
	if t.maxDelay > 0 && d > t.maxDelay {
		d = t.maxDelay
	}
	return d
}

// Package trigger provides ready-made managed.Trigger policies.
//
//	trigger.Once(at)                       // single run at a fixed time
//	trigger.After(5*time.Second)           // single run after registration
//	trigger.Every(time.Minute)             // fixed rate, aligned to registration, no catch-up
//	trigger.FixedDelay(time.Minute)        // next run one minute after the previous one ended
//	trigger.Fibonacci(time.Second, time.Minute) // retry until success with Fibonacci backoff
//
// Decorators compose:
//
//	t := trigger.Limit(trigger.SkipLate(trigger.Every(time.Second), 200*time.Millisecond), 10)
//
// Triggers built by Once, After, Every, FixedDelay, Until, SkipIf and SkipLate are pure and can
// be shared between registrations. Limit and Fibonacci count executions and must not be shared.
package trigger

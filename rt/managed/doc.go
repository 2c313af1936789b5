// Package managed defines the contract of managed tasks: envelopes that decorate arbitrary
// work with identity, execution properties and a lifecycle listener, plus the Trigger and
// LastExecution types used by recurring schedules.
//
// # Envelopes
//
// WrapRunnable and WrapCallable bind a unit of work to its effective properties and listener:
//
//	t, err := managed.WrapRunnable(managed.RunnableFunc(refresh),
//		managed.WithProperties(managed.Properties{managed.IdentityName: "refresh"}),
//		managed.WithListener(l),
//	)
//
// Precedence rules:
//   - If the work implements Task, its properties are the base and override properties are
//     layered on top key by key (override wins).
//   - If neither side provides properties, the envelope has none (nil, not an empty map).
//   - The override listener replaces the work's own listener; listeners are never merged.
//   - The identity description comes from the work if it implements Task, otherwise from
//     the IdentityName property.
//
// Envelopes are immutable. Wrapping an envelope again produces a new envelope.
//
// # Errors
//
// Wrapping nil work fails with ErrNilTask (which is ErrInvalidArgument). Execution outcomes
// are reported as ErrCancelled, ErrSkipped or *AbortedError; see the executor package.
package managed

package managed

import (
	"fmt"
	"sort"
	"strings"
)

// ReservedPrefix is the key namespace set aside for execution hints understood by this module.
// Caller-defined keys must not use it.
const ReservedPrefix = "managed."

// Reserved execution property keys.
const (
	// IdentityName is an opaque name identifying the task for inspection.
	IdentityName = ReservedPrefix + "identity-name"
	// LongRunningHint is "true" or "false". Advisory.
	LongRunningHint = ReservedPrefix + "long-running-hint"
	// TransactionPolicy is TransactionSuspend (default) or TransactionUseCaller.
	TransactionPolicy = ReservedPrefix + "transaction-policy"
	// ContextualCallbackHint is "true" or "false". When true, listener and trigger callbacks
	// receive the execution context of the task; otherwise their context is unspecified.
	ContextualCallbackHint = ReservedPrefix + "contextual-callback-hint"
	// DistributableHint is advisory; its meaning is implementation defined.
	DistributableHint = ReservedPrefix + "distributable-hint"
)

// Values of TransactionPolicy.
const (
	TransactionSuspend   = "suspend"
	TransactionUseCaller = "use-caller-transaction"
)

var reservedKeys = map[string]struct{}{
	IdentityName:           {},
	LongRunningHint:        {},
	TransactionPolicy:      {},
	ContextualCallbackHint: {},
	DistributableHint:      {},
}

// Properties are execution properties attached to a task.
//
// A nil Properties means "no properties provided", which is different from an empty,
// non-nil mapping. Properties attached to an envelope are never mutated; accessors on
// envelopes return copies.
type Properties map[string]string

// MergeProperties layers override on top of base, key by key; override wins on collision.
//
// If both are nil the result is nil. Otherwise the result is a fresh map that aliases
// neither input.
func MergeProperties(base, override Properties) Properties {
	if base == nil && override == nil {
		return nil
	}
	out := make(Properties, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Clone returns a copy of p. A nil p stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Get returns the value stored under key.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Identity returns the IdentityName property (may be empty).
func (p Properties) Identity() string {
	return strings.TrimSpace(p[IdentityName])
}

// IsLongRunning reports whether LongRunningHint is "true".
func (p Properties) IsLongRunning() bool {
	return parseHint(p[LongRunningHint])
}

// ContextualCallbacks reports whether ContextualCallbackHint is "true".
func (p Properties) ContextualCallbacks() bool {
	return parseHint(p[ContextualCallbackHint])
}

// UseCallerTransaction reports whether TransactionPolicy asks to keep the caller's transaction.
func (p Properties) UseCallerTransaction() bool {
	return strings.TrimSpace(p[TransactionPolicy]) == TransactionUseCaller
}

// Validate checks the reserved namespace.
//
// Keys under ReservedPrefix must be one of the reserved keys, and the boolean hints and the
// transaction policy must carry a recognized value. Custom keys are not inspected.
func (p Properties) Validate() error {
	if len(p) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	// Stable error for a given input.
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, ReservedPrefix) {
			continue
		}
		if _, ok := reservedKeys[k]; !ok {
			return fmt.Errorf("%w: %q", ErrReservedKey, k)
		}
		v := strings.TrimSpace(p[k])
		switch k {
		case LongRunningHint, ContextualCallbackHint:
			if v != "" && v != "true" && v != "false" {
				return fmt.Errorf("%w: %s=%q (want true/false)", ErrInvalidArgument, k, p[k])
			}
		case TransactionPolicy:
			if v != "" && v != TransactionSuspend && v != TransactionUseCaller {
				return fmt.Errorf("%w: %s=%q (want %s/%s)", ErrInvalidArgument, k, p[k], TransactionSuspend, TransactionUseCaller)
			}
		}
	}
	return nil
}

func parseHint(v string) bool {
	return strings.TrimSpace(v) == "true"
}

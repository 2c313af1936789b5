package managed

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingListener struct {
	ListenerFuncs
	name string
}

type selfDescribing struct {
	desc     string
	props    Properties
	listener Listener
	ran      bool
}

func (s *selfDescribing) Run(context.Context) error { s.ran = true; return nil }

func (s *selfDescribing) IdentityDescription(string) string { return s.desc }
func (s *selfDescribing) Listener() Listener                { return s.listener }
func (s *selfDescribing) Properties() Properties            { return s.props }

type selfDescribingCallable struct {
	selfDescribing
	result string
}

func (s *selfDescribingCallable) Call(context.Context) (string, error) { return s.result, nil }

func TestWrapRunnable_ListenerOnly(t *testing.T) {
	t.Parallel()

	ran := false
	l := &recordingListener{name: "l"}
	wrapped, err := WrapRunnable(RunnableFunc(func(context.Context) error {
		ran = true
		return nil
	}), WithListener(l))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	if got := wrapped.Listener(); got != Listener(l) {
		t.Fatalf("Listener=%v, want override", got)
	}
	if p := wrapped.Properties(); p != nil {
		t.Fatalf("Properties=%v, want nil (absent)", p)
	}
	if err := wrapped.Run(context.Background()); err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if !ran {
		t.Fatalf("work did not run")
	}
}

func TestWrapRunnable_PropertiesAndIdentityFromProperties(t *testing.T) {
	t.Parallel()

	l := &recordingListener{}
	props := Properties{IdentityName: "task1", LongRunningHint: "true"}
	wrapped, err := WrapRunnable(RunnableFunc(func(context.Context) error { return nil }),
		WithProperties(props), WithListener(l))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	got := wrapped.Properties()
	if got[LongRunningHint] != "true" || got[IdentityName] != "task1" {
		t.Fatalf("Properties=%v", got)
	}
	if d := wrapped.IdentityDescription("en"); d != "task1" {
		t.Fatalf("IdentityDescription=%q, want %q", d, "task1")
	}
}

func TestWrapRunnable_SelfDescribingWork_OverridesWin(t *testing.T) {
	t.Parallel()

	own := &recordingListener{name: "own"}
	work := &selfDescribing{
		desc:     "task1 description",
		props:    Properties{DistributableHint: "true", LongRunningHint: "false"},
		listener: own,
	}
	override := &recordingListener{name: "override"}
	wrapped, err := WrapRunnable(work,
		WithProperties(Properties{IdentityName: "task1", LongRunningHint: "true"}),
		WithListener(override))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	if wrapped.Listener() != Listener(override) {
		t.Fatalf("Listener is not the override")
	}
	want := Properties{IdentityName: "task1", LongRunningHint: "true", DistributableHint: "true"}
	if got := wrapped.Properties(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Properties=%v, want %v", got, want)
	}
	if d := wrapped.IdentityDescription(""); d != "task1 description" {
		t.Fatalf("IdentityDescription=%q, want inner description", d)
	}
	if err := wrapped.Run(context.Background()); err != nil || !work.ran {
		t.Fatalf("Run err=%v ran=%v", err, work.ran)
	}
}

func TestWrapRunnable_SelfDescribingWork_NoOverrides(t *testing.T) {
	t.Parallel()

	own := &recordingListener{name: "own"}
	work := &selfDescribing{
		desc:     "d",
		props:    Properties{DistributableHint: "true"},
		listener: own,
	}
	wrapped, err := WrapRunnable(work, WithProperties(nil), WithListener(nil))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	if wrapped.Listener() != Listener(own) {
		t.Fatalf("Listener should fall back to the work's own listener")
	}
	if got := wrapped.Properties()[DistributableHint]; got != "true" {
		t.Fatalf("distributable=%q, want true", got)
	}
	if d := wrapped.IdentityDescription(""); d != "d" {
		t.Fatalf("IdentityDescription=%q", d)
	}
}

func TestWrapCallable(t *testing.T) {
	t.Parallel()

	own := &recordingListener{name: "own"}
	work := &selfDescribingCallable{
		selfDescribing: selfDescribing{
			desc:     "callable",
			props:    Properties{DistributableHint: "true", LongRunningHint: "false"},
			listener: own,
		},
		result: "result",
	}
	override := &recordingListener{name: "override"}
	wrapped, err := WrapCallable[string](work,
		WithProperties(Properties{IdentityName: "task1", LongRunningHint: "true"}),
		WithListener(override))
	if err != nil {
		t.Fatalf("WrapCallable err=%v", err)
	}
	if wrapped.Listener() != Listener(override) {
		t.Fatalf("Listener is not the override")
	}
	p := wrapped.Properties()
	if p[LongRunningHint] != "true" || p[IdentityName] != "task1" || p[DistributableHint] != "true" {
		t.Fatalf("Properties=%v", p)
	}
	if d := wrapped.IdentityDescription(""); d != "callable" {
		t.Fatalf("IdentityDescription=%q", d)
	}
	got, err := wrapped.Call(context.Background())
	if err != nil || got != "result" {
		t.Fatalf("Call=(%q,%v), want (result,nil)", got, err)
	}
	v, err := wrapped.Invoke(context.Background())
	if err != nil || v != "result" {
		t.Fatalf("Invoke=(%v,%v)", v, err)
	}
}

func TestWrap_NilWork_InvalidArgument(t *testing.T) {
	t.Parallel()

	l := &recordingListener{}
	cases := []struct {
		name string
		fn   func() error
	}{
		{"runnable nil", func() error { _, err := WrapRunnable(nil, WithListener(l)); return err }},
		{"runnable nil with props", func() error {
			_, err := WrapRunnable(nil, WithProperties(Properties{}), WithListener(l))
			return err
		}},
		{"runnable nil func", func() error { _, err := WrapRunnable(RunnableFunc(nil)); return err }},
		{"callable nil", func() error { _, err := WrapCallable[int](nil, WithListener(l)); return err }},
		{"callable nil with props", func() error {
			_, err := WrapCallable[int](nil, WithProperties(Properties{}), WithListener(l))
			return err
		}},
		{"callable nil func", func() error { _, err := WrapCallable[int](CallableFunc[int](nil)); return err }},
	}
	for _, tc := range cases {
		err := tc.fn()
		if !errors.Is(err, ErrInvalidArgument) || !errors.Is(err, ErrNilTask) {
			t.Fatalf("%s: err=%v, want ErrNilTask/ErrInvalidArgument", tc.name, err)
		}
	}
}

func TestWrap_OverridePropertiesAreCopied(t *testing.T) {
	t.Parallel()

	override := Properties{LongRunningHint: "true"}
	wrapped, err := WrapRunnable(RunnableFunc(func(context.Context) error { return nil }), WithProperties(override))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	override[LongRunningHint] = "false"
	override["extra"] = "x"
	got := wrapped.Properties()
	if got[LongRunningHint] != "true" {
		t.Fatalf("mutation of caller map leaked into envelope: %v", got)
	}
	if _, ok := got["extra"]; ok {
		t.Fatalf("mutation of caller map leaked into envelope: %v", got)
	}

	// The returned copy is private as well.
	got[LongRunningHint] = "false"
	if wrapped.Properties()[LongRunningHint] != "true" {
		t.Fatalf("Properties() returned an alias")
	}
}

func TestWrap_EmptyOverrideIsNotAbsent(t *testing.T) {
	t.Parallel()

	wrapped, err := WrapRunnable(RunnableFunc(func(context.Context) error { return nil }), WithProperties(Properties{}))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	p := wrapped.Properties()
	if p == nil || len(p) != 0 {
		t.Fatalf("Properties=%v, want empty non-nil", p)
	}
}

func TestWrap_RewrapEnvelope_LayersAgain(t *testing.T) {
	t.Parallel()

	first, err := WrapRunnable(RunnableFunc(func(context.Context) error { return nil }),
		WithProperties(Properties{IdentityName: "A", LongRunningHint: "false"}))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	second, err := WrapRunnable(first, WithProperties(Properties{LongRunningHint: "true"}))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	want := Properties{IdentityName: "A", LongRunningHint: "true"}
	if got := second.Properties(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Properties=%v, want %v", got, want)
	}
	if got := first.Properties()[LongRunningHint]; got != "false" {
		t.Fatalf("original envelope mutated: %v", first.Properties())
	}
	if d := second.IdentityDescription(""); d != "A" {
		t.Fatalf("IdentityDescription=%q, want A", d)
	}
}

func TestAsWork(t *testing.T) {
	t.Parallel()

	if _, err := AsWork(nil); !errors.Is(err, ErrNilTask) {
		t.Fatalf("AsWork(nil) err=%v", err)
	}
	env, _ := WrapRunnable(RunnableFunc(func(context.Context) error { return nil }))
	w, err := AsWork(env)
	if err != nil || w != Work(env) {
		t.Fatalf("AsWork(envelope) should return it unchanged; err=%v", err)
	}
	w, err = AsWork(RunnableFunc(func(context.Context) error { return errors.New("boom") }))
	if err != nil {
		t.Fatalf("AsWork err=%v", err)
	}
	if _, err := w.Invoke(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("Invoke err=%v, want boom", err)
	}
}

func TestWrapRunnable_EmptyInnerDescriptionFallsBackToIdentity(t *testing.T) {
	t.Parallel()

	work := &selfDescribing{props: Properties{IdentityName: "inner"}}
	wrapped, err := WrapRunnable(work, WithProperties(Properties{IdentityName: "override"}))
	if err != nil {
		t.Fatalf("WrapRunnable err=%v", err)
	}
	if d := wrapped.IdentityDescription(""); d != "override" {
		t.Fatalf("IdentityDescription=%q, want override identity", d)
	}
}

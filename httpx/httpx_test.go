package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }),
		mw("a"), nil, mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,h" {
		t.Fatalf("order=%q, want a,b,h", got)
	}
}

func TestRequestID_GeneratesAndKeepsValid(t *testing.T) {
	var seen string
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromRequest(r)
	}), RequestID())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(DefaultRequestIDHeader) != seen {
		t.Fatalf("generated id=%q, header=%q", seen, w.Header().Get(DefaultRequestIDHeader))
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(DefaultRequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "abc-123" {
		t.Fatalf("id=%q, want incoming abc-123", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(DefaultRequestIDHeader, "bad id\n")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen == "bad id\n" || seen == "" {
		t.Fatalf("id=%q, want a generated id", seen)
	}
}

func TestRecover_Writes500AndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID(), AccessLog(l), Recover(l))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
	panics := logs.FilterMessage("httpx: panic").All()
	if len(panics) != 1 || panics[0].ContextMap()["request_id"] == "" {
		t.Fatalf("panic entries=%v", panics)
	}
	access := logs.FilterMessage("httpx: request").All()
	if len(access) != 1 || access[0].Level != zapcore.WarnLevel || access[0].ContextMap()["status"] != int64(500) {
		t.Fatalf("access entries=%v", access)
	}
}

func TestRecover_StartedResponseUntouched(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}), Recover(zap.NewNop()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d, want 202", w.Code)
	}
}

func TestRecover_RepanicsErrAbortHandler(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }),
		Recover(zap.NewNop()))
	defer func() {
		if p := recover(); p != http.ErrAbortHandler {
			t.Fatalf("recovered=%v, want ErrAbortHandler", p)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestTokenGuard(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
		TokenGuard(zap.New(core), " s3cret ", ""))

	cases := []struct {
		tokens []string
		code   int
		reason string
	}{
		{nil, http.StatusForbidden, "token_missing"},
		{[]string{"a", "b"}, http.StatusForbidden, "token_ambiguous"},
		{[]string{" "}, http.StatusForbidden, "token_empty"},
		{[]string{"wrong"}, http.StatusForbidden, "token_invalid"},
		{[]string{"s3cret"}, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		logs.TakeAll()
		r := httptest.NewRequest(http.MethodPost, "/cancel", nil)
		for _, v := range tc.tokens {
			r.Header.Add(DefaultTokenHeader, v)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != tc.code {
			t.Fatalf("tokens=%q: status=%d, want %d", tc.tokens, w.Code, tc.code)
		}
		entries := logs.All()
		if tc.reason == "" {
			if len(entries) != 0 {
				t.Fatalf("tokens=%q: unexpected logs %v", tc.tokens, entries)
			}
			continue
		}
		if len(entries) != 1 || entries[0].ContextMap()["reason"] != tc.reason {
			t.Fatalf("tokens=%q: entries=%v, want reason %q", tc.tokens, entries, tc.reason)
		}
	}
}

func TestTokenGuard_NoTokensDeniesAll(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), TokenGuard(zap.NewNop()))
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(DefaultTokenHeader, "anything")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d, want 403", w.Code)
	}
}

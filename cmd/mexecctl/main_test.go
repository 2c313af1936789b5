package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/httpx"
	"github.com/evan-idocoding/mexec/ops"
	"github.com/evan-idocoding/mexec/rt/executor"
)

func newServer(t *testing.T) (*httptest.Server, zap.AtomicLevel) {
	t.Helper()
	e := executor.New(executor.WithName("ctl-test"))
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	lv := zap.NewAtomicLevelAt(zap.InfoLevel)

	mux := http.NewServeMux()
	mux.Handle(ops.PathHealthz, ops.HealthzHandler())
	mux.Handle(ops.PathSchedules, ops.SchedulesSnapshotHandler(e))
	mux.Handle(ops.PathLogLevel, httpx.Wrap(ops.LogLevelHandler(lv), httpx.TokenGuard(nil, "tok")))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, lv
}

func ctl(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	if code, _, stderr := ctl(t); code != 2 || !strings.Contains(stderr, "missing command") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	srv, _ := newServer(t)
	if code, _, stderr := ctl(t, "-addr", srv.URL, "reboot"); code != 1 || !strings.Contains(stderr, "unknown command") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
	if code, _, _ := ctl(t, "-addr", srv.URL, "cancel"); code != 1 {
		t.Fatalf("cancel without name: code=%d", code)
	}
}

func TestRun_HealthAndSchedules(t *testing.T) {
	srv, _ := newServer(t)

	code, out, stderr := ctl(t, "-addr", srv.URL, "health")
	if code != 0 || out != "ok\n" {
		t.Fatalf("health: code=%d out=%q stderr=%q", code, out, stderr)
	}

	code, out, _ = ctl(t, "-addr", srv.URL, "schedules")
	if code != 0 || !strings.HasPrefix(out, "executor ctl-test: running") || !strings.Contains(out, "NAME") {
		t.Fatalf("schedules: code=%d out=%q", code, out)
	}

	code, out, _ = ctl(t, "-addr", srv.URL, "-json", "schedules")
	if code != 0 || !strings.Contains(out, `"name": "ctl-test"`) {
		t.Fatalf("schedules json: code=%d out=%q", code, out)
	}
}

func TestRun_LevelNeedsToken(t *testing.T) {
	srv, lv := newServer(t)

	if code, _, stderr := ctl(t, "-addr", srv.URL, "level", "debug"); code != 1 || !strings.Contains(stderr, "403") {
		t.Fatalf("no token: code=%d stderr=%q", code, stderr)
	}
	code, out, stderr := ctl(t, "-addr", srv.URL, "-token", "tok", "level", "debug")
	if code != 0 || out != "info -> debug\n" {
		t.Fatalf("with token: code=%d out=%q stderr=%q", code, out, stderr)
	}
	if lv.Level() != zap.DebugLevel {
		t.Fatalf("level=%v", lv.Level())
	}
}

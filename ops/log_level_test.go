package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogLevel_Get_Text(t *testing.T) {
	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	h := LogLevelHandler(lv)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/log/level", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want=%d", w.Result().StatusCode, http.StatusOK)
	}
	if body := w.Body.String(); body != "log\tlevel\tinfo\n" {
		t.Fatalf("body=%q", body)
	}
}

func TestLogLevel_Set_JSON(t *testing.T) {
	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	h := LogLevelHandler(lv, WithDefaultFormat(FormatJSON))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/log/level?level=WARNING", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status=%d, body=%q", w.Result().StatusCode, w.Body.String())
	}
	var got LogLevelResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.OK || got.Old == nil || got.Old.Level != "info" || got.Log == nil || got.Log.Level != "warn" {
		t.Fatalf("got=%+v", got)
	}
	if lv.Level() != zapcore.WarnLevel {
		t.Fatalf("level=%v, want warn", lv.Level())
	}
}

func TestLogLevel_Set_Invalid(t *testing.T) {
	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	h := LogLevelHandler(lv)

	for _, q := range []string{"", "?level=", "?level=fatal", "?level=verbose"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/log/level"+q, nil))
		if w.Result().StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: status=%d, want=%d", q, w.Result().StatusCode, http.StatusBadRequest)
		}
	}
	if lv.Level() != zapcore.InfoLevel {
		t.Fatalf("level changed to %v", lv.Level())
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "http://example/log/level", nil))
	if w.Result().StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want=%d", w.Result().StatusCode, http.StatusMethodNotAllowed)
	}
}

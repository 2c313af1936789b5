package ops

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelSnapshot is a point-in-time view of a zap.AtomicLevel.
type LogLevelSnapshot struct {
	// Level is the zap level name: debug, info, warn, error, dpanic, panic or fatal.
	Level string `json:"level"`
	// LevelValue is the numeric zapcore level (Debug=-1, Info=0, Warn=1, Error=2).
	LevelValue int `json:"level_value"`
}

// LogLevel returns a snapshot of lv.
func LogLevel(lv zap.AtomicLevel) LogLevelSnapshot {
	l := lv.Level()
	return LogLevelSnapshot{Level: l.String(), LevelValue: int(l)}
}

// LogLevelResponse is the JSON body of LogLevelHandler. Old is set only by a change.
type LogLevelResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Log *LogLevelSnapshot `json:"log,omitempty"`
	Old *LogLevelSnapshot `json:"old,omitempty"`
}

// LogLevelHandler returns a handler that reads (GET/HEAD) or changes (POST) the level of lv.
//
// POST takes the new level from the URL query: ?level=debug|info|warn|error. "warning" and
// "err" are accepted as aliases. The response carries the new level and the old one.
func LogLevelHandler(lv zap.AtomicLevel, opts ...Option) http.Handler {
	cfg := applyOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			panic("ops: nil request")
		}
		format := formatFromRequest(r, cfg.format)
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			snap := LogLevel(lv)
			writeLogLevel(w, r, format, http.StatusOK, LogLevelResponse{OK: true, Log: &snap})
		case http.MethodPost:
			raw, _ := getQueryRequired(r, "level")
			l, ok := parseLevel(raw)
			if !ok {
				writeLogLevel(w, r, format, http.StatusBadRequest, LogLevelResponse{
					Error: "invalid level (want one of: debug, info, warn, error)",
				})
				return
			}
			old := LogLevel(lv)
			lv.SetLevel(l)
			snap := LogLevel(lv)
			writeLogLevel(w, r, format, http.StatusOK, LogLevelResponse{OK: true, Log: &snap, Old: &old})
		default:
			w.Header().Set("Allow", "GET, HEAD, POST")
			writeLogLevel(w, r, format, http.StatusMethodNotAllowed, LogLevelResponse{Error: "method not allowed"})
		}
	})
}

func writeLogLevel(w http.ResponseWriter, r *http.Request, f Format, code int, resp LogLevelResponse) {
	writeResponse(w, r, f, code, resp, resp.OK, resp.Error, func() string {
		var lw lineWriter
		if resp.Old != nil {
			lw.line("log", "old_level", resp.Old.Level)
		}
		if resp.Log != nil {
			lw.line("log", "level", resp.Log.Level)
		}
		return lw.String()
	})
}

func parseLevel(s string) (zapcore.Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "warning":
		s = "warn"
	case "err":
		s = "error"
	}
	switch s {
	case "debug", "info", "warn", "error":
	default:
		return zapcore.InfoLevel, false
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, false
	}
	return l, true
}

package ops

import (
	"net/http"
	"strings"
)

// Format controls the response rendering format.
//
// This is shared across ops handlers that support multiple output formats.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

type config struct {
	format Format

	guards []func(name string) bool
	guard  func(name string) bool
}

// Option configures ops handlers.
type Option func(*config)

// WithDefaultFormat sets the default response format.
//
// This default can be overridden per request by URL query:
//   - ?format=json
//   - ?format=text
//
// Default is FormatText.
func WithDefaultFormat(f Format) Option {
	return func(c *config) { c.format = f }
}

// WithNameGuard appends a schedule name guard.
//
// All guards are combined with AND: a name is allowed only if all guards allow it.
// This applies to both read and write schedule handlers. Unnamed schedules are hidden
// whenever a guard is configured.
func WithNameGuard(fn func(name string) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.guards = append(c.guards, fn)
		}
	}
}

// WithAllowPrefixes restricts schedule names to the provided prefixes.
//
// Safety note: if no non-empty prefix is provided, this option denies all names.
func WithAllowPrefixes(prefixes ...string) Option {
	var ps []string
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		ps = append(ps, p)
	}
	return WithNameGuard(func(name string) bool {
		for _, p := range ps {
			if strings.HasPrefix(name, p) {
				return true
			}
		}
		return false
	})
}

// WithAllowNames restricts schedule names to the provided explicit set.
//
// Safety note: if no non-empty name is provided, this option denies all names.
func WithAllowNames(names ...string) Option {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return WithNameGuard(func(name string) bool {
		_, ok := set[name]
		return ok
	})
}

func applyOptions(opts []Option) config {
	cfg := config{
		format: FormatText,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.format != FormatText && cfg.format != FormatJSON {
		cfg.format = FormatText
	}
	if len(cfg.guards) > 0 {
		guards := append([]func(string) bool(nil), cfg.guards...)
		cfg.guard = func(name string) bool {
			for _, g := range guards {
				if !g(name) {
					return false
				}
			}
			return true
		}
	}
	return cfg
}

func formatFromRequest(r *http.Request, def Format) Format {
	if r == nil || r.URL == nil {
		return def
	}
	switch r.URL.Query().Get("format") {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return def
	}
}

func getQueryRequired(r *http.Request, name string) (string, bool) {
	if r == nil || r.URL == nil {
		return "", false
	}
	vs, ok := r.URL.Query()[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

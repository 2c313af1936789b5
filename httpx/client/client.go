// Package client builds the *http.Client used to talk to an operational server.
//
// Requests go through a RoundTripper middleware chain; the first middleware is the
// outermost. The base transport is cloned from http.DefaultTransport, so neither
// http.DefaultClient nor http.DefaultTransport is ever mutated.
package client

import (
	"net/http"
	"time"
)

type config struct {
	timeout      time.Duration
	roundTripper http.RoundTripper
	middlewares  []Middleware
}

// Option configures New.
type Option func(*config)

// WithTimeout sets http.Client.Timeout. 0 (default) means no client-level timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRoundTripper replaces the base transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *config) { c.roundTripper = rt }
}

// WithMiddlewares appends middlewares. Nil entries are skipped.
func WithMiddlewares(mws ...Middleware) Option {
	return func(c *config) { c.middlewares = append(c.middlewares, mws...) }
}

// New builds an *http.Client.
func New(opts ...Option) *http.Client {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &http.Client{
		Transport: Chain(cfg.roundTripper, cfg.middlewares...),
		Timeout:   cfg.timeout,
	}
}

func cloneDefaultTransport() http.RoundTripper {
	if t, ok := http.DefaultTransport.(*http.Transport); ok && t != nil {
		return t.Clone()
	}
	return http.DefaultTransport
}

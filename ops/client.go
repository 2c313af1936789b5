package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/evan-idocoding/mexec/httpx/client"
)

// Default routes under which a daemon mounts the handlers of this package.
const (
	PathHealthz        = "/healthz"
	PathReadyz         = "/readyz"
	PathSchedules      = "/schedules"
	PathScheduleCancel = "/schedules/cancel"
	PathLogLevel       = "/log/level"
)

const maxResponseBytes = 4 << 20

// StatusError is returned by Client when the server answered with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ops: status %d", e.Code)
	}
	return fmt.Sprintf("ops: status %d: %s", e.Code, e.Message)
}

// Client calls the handlers of this package mounted at their default routes.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient returns a Client for the server at baseURL (e.g. "http://127.0.0.1:8086").
// A nil hc means client.New(client.WithMiddlewares(client.RequestID())).
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = client.New(client.WithMiddlewares(client.RequestID()))
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

// Healthz calls the liveness handler.
func (c *Client) Healthz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, PathHealthz, nil, &out)
	return out, err
}

// Readyz calls the readiness handler. A stopping executor yields a *StatusError with
// code 503; out still carries the reported state.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, PathReadyz, nil, &out)
	return out, err
}

// Schedules fetches the executor and schedule snapshot.
func (c *Client) Schedules(ctx context.Context) (SchedulesResponse, error) {
	var out SchedulesResponse
	err := c.do(ctx, http.MethodGet, PathSchedules, nil, &out)
	return out, err
}

// CancelSchedule cancels the schedule called name.
func (c *Client) CancelSchedule(ctx context.Context, name string) (ScheduleCancelResponse, error) {
	var out ScheduleCancelResponse
	err := c.do(ctx, http.MethodPost, PathScheduleCancel, url.Values{"name": {name}}, &out)
	return out, err
}

// LogLevel reads the current log level.
func (c *Client) LogLevel(ctx context.Context) (LogLevelResponse, error) {
	var out LogLevelResponse
	err := c.do(ctx, http.MethodGet, PathLogLevel, nil, &out)
	return out, err
}

// SetLogLevel changes the log level.
func (c *Client) SetLogLevel(ctx context.Context, level string) (LogLevelResponse, error) {
	var out LogLevelResponse
	err := c.do(ctx, http.MethodPost, PathLogLevel, url.Values{"level": {level}}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, method, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	body, err := client.ReadAllAndCloseLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return fmt.Errorf("ops: read %s: %w", path, err)
	}

	var env struct {
		Error string `json:"error"`
	}
	decodeErr := json.Unmarshal(body, out)
	_ = json.Unmarshal(body, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if msg == "" && decodeErr != nil {
			msg = strings.TrimSpace(string(body))
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("ops: decode %s: %w", path, decodeErr)
	}
	return nil
}

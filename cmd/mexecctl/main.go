// Command mexecctl talks to the operational endpoints of a running mexecd.
//
// Usage:
//
//	mexecctl [-addr URL] [-token T] [-json] health|ready|schedules|cancel NAME|level [LEVEL]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evan-idocoding/mexec/httpx/client"
	"github.com/evan-idocoding/mexec/ops"
)

const defaultAddr = "http://127.0.0.1:8086"

type options struct {
	addr    string
	token   string
	timeout time.Duration
	json    bool
	args    []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("mexecctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.addr, "addr", envOr("MEXEC_ADDR", defaultAddr), "operational server base URL")
	fs.StringVar(&o.token, "token", os.Getenv("MEXEC_TOKEN"), "access token for write commands")
	fs.DurationVar(&o.timeout, "timeout", 5*time.Second, "request timeout")
	fs.BoolVar(&o.json, "json", false, "print raw JSON responses")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.args = fs.Args()
	if len(o.args) == 0 {
		return o, errors.New("missing command")
	}
	return o, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "mexecctl:", err)
		return 2
	}
	hc := client.New(
		client.WithTimeout(o.timeout),
		client.WithMiddlewares(client.RequestID(), client.Token(o.token)),
	)
	c := ops.NewClient(o.addr, hc)

	out, err := dispatch(ctx, c, o.args)
	var se *ops.StatusError
	if out != nil && (err == nil || (o.json && errors.As(err, &se))) {
		if perr := render(stdout, out, o.json); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, "mexecctl:", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, c *ops.Client, args []string) (any, error) {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "health":
		return c.Healthz(ctx)
	case "ready":
		return c.Readyz(ctx)
	case "schedules":
		return c.Schedules(ctx)
	case "cancel":
		if len(rest) != 1 {
			return nil, errors.New("usage: cancel NAME")
		}
		return c.CancelSchedule(ctx, rest[0])
	case "level":
		switch len(rest) {
		case 0:
			return c.LogLevel(ctx)
		case 1:
			return c.SetLogLevel(ctx, rest[0])
		}
		return nil, errors.New("usage: level [LEVEL]")
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func render(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	switch r := v.(type) {
	case ops.HealthResponse:
		state := r.State
		if state == "" {
			state = "ok"
		}
		_, err := fmt.Fprintln(w, state)
		return err
	case ops.SchedulesResponse:
		return printSchedules(w, r)
	case ops.ScheduleCancelResponse:
		_, err := fmt.Fprintf(w, "%s cancelled\n", r.Name)
		return err
	case ops.LogLevelResponse:
		if r.Old != nil {
			_, err := fmt.Fprintf(w, "%s -> %s\n", r.Old.Level, r.Log.Level)
			return err
		}
		_, err := fmt.Fprintln(w, r.Log.Level)
		return err
	}
	return fmt.Errorf("unexpected response %T", v)
}

func printSchedules(w io.Writer, r ops.SchedulesResponse) error {
	if e := r.Executor; e != nil {
		fmt.Fprintf(w, "executor %s: %s (submitted=%d succeeded=%d failed=%d aborted=%d)\n",
			e.Name, e.State, e.Submitted, e.Succeeded, e.Failed, e.Aborted)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tNEXT RUN\tRUNS\tOK\tFAIL\tSKIP\tLAST")
	for _, s := range r.Schedules {
		next := "-"
		if !s.NextRun.IsZero() {
			next = s.NextRun.Format(time.RFC3339)
		}
		last := "-"
		if s.Last != nil {
			last = s.Last.Outcome
			if s.Last.Error != "" {
				last += ": " + s.Last.Error
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.DisplayName, s.State, next, s.RunCount, s.SuccessCount, s.FailCount, s.SkipCount, last)
	}
	return tw.Flush()
}

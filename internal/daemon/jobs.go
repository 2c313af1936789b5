package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/internal/config"
	"github.com/evan-idocoding/mexec/rt/executor"
	"github.com/evan-idocoding/mexec/rt/managed"
	"github.com/evan-idocoding/mexec/rt/trigger"
)

// maxOutputLog caps how much command output is attached to a log entry.
const maxOutputLog = 4 << 10

// BuildTrigger converts a trigger configuration into a managed.Trigger.
//
// The configuration must have passed config validation; invalid values panic inside the
// trigger constructors.
func BuildTrigger(c config.TriggerConfig) (managed.Trigger, error) {
	var t managed.Trigger
	switch strings.ToLower(c.Kind) {
	case config.TriggerEvery:
		t = trigger.Every(c.Interval, trigger.WithStartImmediately(c.StartImmediately))
	case config.TriggerFixedDelay:
		t = trigger.FixedDelay(c.Interval, trigger.WithStartImmediately(c.StartImmediately))
	case config.TriggerAfter:
		t = trigger.After(c.Interval)
	case config.TriggerFibonacci:
		t = trigger.Fibonacci(c.Interval, c.MaxDelay)
	default:
		return nil, fmt.Errorf("daemon: unknown trigger kind %q", c.Kind)
	}
	if c.SkipLate > 0 {
		t = trigger.SkipLate(t, c.SkipLate)
	}
	if c.Limit > 0 {
		t = trigger.Limit(t, c.Limit)
	}
	return t, nil
}

// BuildWork converts a job configuration into schedulable work named after the job.
func BuildWork(c config.JobConfig, logger *zap.Logger) (managed.Work, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	props := managed.Properties{
		managed.IdentityName:    c.Name,
		managed.LongRunningHint: strconv.FormatBool(c.LongRunning),
	}
	l := logger.With(zap.String("job", c.Name))

	var run managed.RunnableFunc
	switch strings.ToLower(c.Kind) {
	case config.JobLog:
		msg := c.Message
		if msg == "" {
			msg = "tick"
		}
		run = func(ctx context.Context) error {
			id, _ := executor.ExecutionID(ctx)
			l.Info(msg, zap.String("execution_id", id))
			return nil
		}
	case config.JobExec:
		if len(c.Command) == 0 {
			return nil, fmt.Errorf("daemon: job %q: empty command", c.Name)
		}
		run = commandRunner(c.Command, c.Timeout, l)
	default:
		return nil, fmt.Errorf("daemon: job %q: unknown kind %q", c.Name, c.Kind)
	}
	w, err := managed.WrapRunnable(run, managed.WithProperties(props))
	if err != nil {
		return nil, err
	}
	return w, nil
}

func commandRunner(argv []string, timeout time.Duration, l *zap.Logger) managed.RunnableFunc {
	args := append([]string(nil), argv...)
	return func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Stdout = &out
		cmd.Stderr = &out

		start := time.Now()
		err := cmd.Run()
		id, _ := executor.ExecutionID(ctx)
		fields := []zap.Field{
			zap.String("command", args[0]),
			zap.Duration("duration", time.Since(start)),
			zap.String("execution_id", id),
		}
		if out.Len() > 0 {
			fields = append(fields, zap.String("output", truncate(out.String(), maxOutputLog)))
		}
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("%w (%v)", ctx.Err(), err)
			}
			l.Warn("command failed", append(fields, zap.Error(err))...)
			return err
		}
		l.Debug("command finished", fields...)
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// RegisterJobs schedules every configured job on e. On error, schedules registered so far
// are cancelled.
func RegisterJobs(e *executor.Executor, jobs []config.JobConfig, logger *zap.Logger) ([]*executor.Schedule, error) {
	out := make([]*executor.Schedule, 0, len(jobs))
	fail := func(err error) ([]*executor.Schedule, error) {
		for _, s := range out {
			s.Cancel()
		}
		return nil, err
	}
	for _, jc := range jobs {
		w, err := BuildWork(jc, logger)
		if err != nil {
			return fail(err)
		}
		t, err := BuildTrigger(jc.Trigger)
		if err != nil {
			return fail(fmt.Errorf("daemon: job %q: %w", jc.Name, err))
		}
		s, err := e.Schedule(w, t)
		if err != nil {
			return fail(fmt.Errorf("daemon: schedule job %q: %w", jc.Name, err))
		}
		out = append(out, s)
	}
	return out, nil
}

// LogListener returns a listener that logs every lifecycle stage of an execution instance.
// Stages are logged at Debug; failures and aborts at Warn.
func LogListener(logger *zap.Logger) managed.Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := func(f managed.Future, task managed.Task) []zap.Field {
		name := ""
		if p := task.Properties(); p != nil {
			name = p[managed.IdentityName]
		}
		if name == "" {
			name = task.IdentityDescription("")
		}
		return []zap.Field{zap.String("task", name), zap.String("execution_id", f.ID())}
	}
	return managed.ListenerFuncs{
		OnSubmitted: func(f managed.Future, task managed.Task) {
			logger.Debug("task submitted", fields(f, task)...)
		},
		OnStarting: func(f managed.Future, task managed.Task) {
			logger.Debug("task starting", fields(f, task)...)
		},
		OnAborted: func(f managed.Future, task managed.Task, err error) {
			lvl := zap.WarnLevel
			if errors.Is(err, managed.ErrSkipped) {
				lvl = zap.DebugLevel
			}
			if ce := logger.Check(lvl, "task aborted"); ce != nil {
				ce.Write(append(fields(f, task), zap.Error(err))...)
			}
		},
		OnDone: func(f managed.Future, task managed.Task, err error) {
			if err != nil {
				logger.Warn("task failed", append(fields(f, task), zap.Error(err))...)
				return
			}
			logger.Debug("task done", fields(f, task)...)
		},
	}
}

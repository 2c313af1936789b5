package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mexecd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("MEXEC_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)

	def := Default()
	require.Equal(t, def.Name, cfg.Name)
	require.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, def.Log, cfg.Log)
	require.Equal(t, def.Pool, cfg.Pool)
	require.Equal(t, def.Ops.Listen, cfg.Ops.Listen)
	require.True(t, cfg.Ops.Enable)
	require.Empty(t, cfg.Ops.CancelPrefixes)
	require.Empty(t, cfg.Ops.Tokens)
	require.Empty(t, cfg.Jobs)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	// An explicit path that does not exist is an error, unlike the search path.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
name: batch
shutdown_timeout: 3s
log:
  level: debug
  format: json
pool:
  workers: 2
  queue_size: 8
  submit_rate: 50
ops:
  listen: ":9000"
  cancel_prefixes: ["ops."]
  tokens: ["t0ken"]
jobs:
  - name: heartbeat
    kind: log
    message: alive
    trigger:
      kind: every
      interval: 1s
      start_immediately: true
  - name: ops.cleanup
    kind: exec
    command: ["true"]
    timeout: 5s
    long_running: true
    trigger:
      kind: fibonacci
      interval: 100ms
      max_delay: 10s
      limit: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "batch", cfg.Name)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, []string{"stdout"}, cfg.Log.Outputs)
	require.Equal(t, PoolConfig{Workers: 2, QueueSize: 8, SubmitRate: 50, SubmitBurst: 1}, cfg.Pool)
	require.Equal(t, ":9000", cfg.Ops.Listen)
	require.Equal(t, []string{"ops."}, cfg.Ops.CancelPrefixes)
	require.Equal(t, []string{"t0ken"}, cfg.Ops.Tokens)

	require.Len(t, cfg.Jobs, 2)
	require.Equal(t, JobConfig{
		Name:    "heartbeat",
		Kind:    JobLog,
		Message: "alive",
		Trigger: TriggerConfig{Kind: TriggerEvery, Interval: time.Second, StartImmediately: true},
	}, cfg.Jobs[0])
	require.Equal(t, []string{"true"}, cfg.Jobs[1].Command)
	require.True(t, cfg.Jobs[1].LongRunning)
	require.Equal(t, 5*time.Second, cfg.Jobs[1].Timeout)
	require.Equal(t, TriggerConfig{Kind: TriggerFibonacci, Interval: 100 * time.Millisecond, MaxDelay: 10 * time.Second, Limit: 5}, cfg.Jobs[1].Trigger)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("MEXEC_LOG_LEVEL", "warn")
	t.Setenv("MEXEC_POOL_WORKERS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, 7, cfg.Pool.Workers)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "name: from-env\n")
	t.Setenv("MEXEC_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Name)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"log level":        "log:\n  level: loud\n",
		"log format":       "log:\n  format: xml\n",
		"workers":          "pool:\n  workers: 0\n",
		"queue":            "pool:\n  queue_size: -1\n",
		"rate":             "pool:\n  submit_rate: -1\n",
		"ops listen":       "ops:\n  listen: \"\"\n",
		"job name":         "jobs:\n  - kind: log\n    trigger: {kind: every, interval: 1s}\n",
		"job kind":         "jobs:\n  - name: a\n    kind: http\n    trigger: {kind: every, interval: 1s}\n",
		"exec command":     "jobs:\n  - name: a\n    kind: exec\n    trigger: {kind: every, interval: 1s}\n",
		"trigger kind":     "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: cron, interval: 1s}\n",
		"interval":         "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: every}\n",
		"max delay":        "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: fibonacci, interval: 1s, max_delay: 10ms}\n",
		"duplicate":        "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: every, interval: 1s}\n  - name: a\n    kind: log\n    trigger: {kind: every, interval: 1s}\n",
		"bad yaml":         "pool: [\n",
		"shutdown":         "shutdown_timeout: 0s\n",
		"negative limit":   "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: every, interval: 1s, limit: -1}\n",
		"negative skip":    "jobs:\n  - name: a\n    kind: log\n    trigger: {kind: every, interval: 1s, skip_late: -1s}\n",
		"negative timeout": "jobs:\n  - name: a\n    kind: log\n    timeout: -1s\n    trigger: {kind: every, interval: 1s}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	path := writeConfig(t, "pool:\n  workers: -3\n")
	require.Panics(t, func() { MustLoad(path) })
}

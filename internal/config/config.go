// Package config provides YAML-based configuration loading for mexecd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root daemon configuration.
type Config struct {
	// Name is the executor name used in logs and snapshots.
	Name string `mapstructure:"name"`

	// ShutdownTimeout bounds the graceful shutdown of the executor and the ops server.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Log  LogConfig  `mapstructure:"log"`
	Pool PoolConfig `mapstructure:"pool"`
	Ops  OpsConfig  `mapstructure:"ops"`

	// Jobs are the recurring jobs registered at startup.
	Jobs []JobConfig `mapstructure:"jobs"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
	// SubmitRate is the admission rate in jobs per second. 0 disables the limit.
	SubmitRate  float64 `mapstructure:"submit_rate"`
	SubmitBurst int     `mapstructure:"submit_burst"`
}

// OpsConfig controls the operational HTTP endpoint.
type OpsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Listen string `mapstructure:"listen"`
	// CancelPrefixes restricts which schedules may be cancelled over HTTP. Empty disables cancel.
	CancelPrefixes []string `mapstructure:"cancel_prefixes"`
	// Tokens are accepted by write endpoints (cancel, log level change). Empty disables them.
	Tokens []string `mapstructure:"tokens"`
}

// Job kinds.
const (
	JobLog  = "log"
	JobExec = "exec"
)

// Trigger kinds.
const (
	TriggerEvery      = "every"
	TriggerFixedDelay = "fixed_delay"
	TriggerAfter      = "after"
	TriggerFibonacci  = "fibonacci"
)

// JobConfig describes one recurring job.
type JobConfig struct {
	Name string `mapstructure:"name"`
	// Kind: log (writes Message to the log) or exec (runs Command).
	Kind    string   `mapstructure:"kind"`
	Message string   `mapstructure:"message"`
	Command []string `mapstructure:"command"`
	// Timeout bounds one run. 0 means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// LongRunning hints that a run occupies its own goroutine instead of a pool worker.
	LongRunning bool `mapstructure:"long_running"`

	Trigger TriggerConfig `mapstructure:"trigger"`
}

// TriggerConfig selects and parameterizes the trigger of a job.
type TriggerConfig struct {
	// Kind: every, fixed_delay, after or fibonacci.
	Kind     string        `mapstructure:"kind"`
	Interval time.Duration `mapstructure:"interval"`
	// MaxDelay caps the fibonacci backoff. 0 means uncapped.
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	StartImmediately bool          `mapstructure:"start_immediately"`
	// Limit ends the schedule after that many started runs. 0 means unlimited.
	Limit int `mapstructure:"limit"`
	// SkipLate skips runs that start later than this after their scheduled time. 0 disables it.
	SkipLate time.Duration `mapstructure:"skip_late"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Name:            "mexecd",
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConfig{
				Filename:   "logs/mexecd.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Pool: PoolConfig{
			Workers:   4,
			QueueSize: 1024,
		},
		Ops: OpsConfig{
			Enable: true,
			Listen: "127.0.0.1:8086",
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise it searches
// common locations. Environment variables use the prefix MEXEC and `.`/`-` are replaced
// with `_`. Example: MEXEC_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MEXEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Seed defaults so env-only configs work.
	v.SetDefault("name", cfg.Name)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("pool.workers", cfg.Pool.Workers)
	v.SetDefault("pool.queue_size", cfg.Pool.QueueSize)
	v.SetDefault("pool.submit_rate", cfg.Pool.SubmitRate)
	v.SetDefault("pool.submit_burst", cfg.Pool.SubmitBurst)
	v.SetDefault("ops.enable", cfg.Ops.Enable)
	v.SetDefault("ops.listen", cfg.Ops.Listen)

	if path == "" {
		if envPath := os.Getenv("MEXEC_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mexecd")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mexecd"))
		}
	}

	// A missing config file is fine; defaults and env apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown_timeout: %v", c.ShutdownTimeout)
	}

	if c.Pool.Workers <= 0 {
		return fmt.Errorf("invalid pool.workers: %d", c.Pool.Workers)
	}
	if c.Pool.QueueSize < 0 {
		return fmt.Errorf("invalid pool.queue_size: %d", c.Pool.QueueSize)
	}
	if c.Pool.SubmitRate < 0 {
		return fmt.Errorf("invalid pool.submit_rate: %v", c.Pool.SubmitRate)
	}
	if c.Pool.SubmitRate > 0 && c.Pool.SubmitBurst <= 0 {
		c.Pool.SubmitBurst = 1
	}
	if c.Ops.Enable && strings.TrimSpace(c.Ops.Listen) == "" {
		return errors.New("ops.listen is required when ops.enable is set")
	}

	seen := make(map[string]struct{}, len(c.Jobs))
	for i := range c.Jobs {
		j := &c.Jobs[i]
		j.Name = strings.TrimSpace(j.Name)
		j.Kind = strings.ToLower(strings.TrimSpace(j.Kind))
		j.Trigger.Kind = strings.ToLower(strings.TrimSpace(j.Trigger.Kind))
		if j.Name == "" {
			return fmt.Errorf("jobs[%d]: missing name", i)
		}
		if _, dup := seen[j.Name]; dup {
			return fmt.Errorf("jobs[%d]: duplicate name %q", i, j.Name)
		}
		seen[j.Name] = struct{}{}
		if err := j.validate(); err != nil {
			return fmt.Errorf("jobs[%d] %q: %w", i, j.Name, err)
		}
	}
	return nil
}

func (j *JobConfig) validate() error {
	switch j.Kind {
	case JobLog:
	case JobExec:
		if len(j.Command) == 0 || strings.TrimSpace(j.Command[0]) == "" {
			return errors.New("exec job requires a command")
		}
	default:
		return fmt.Errorf("invalid kind: %q", j.Kind)
	}
	if j.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %v", j.Timeout)
	}

	t := j.Trigger
	switch t.Kind {
	case TriggerEvery, TriggerFixedDelay, TriggerAfter, TriggerFibonacci:
	default:
		return fmt.Errorf("invalid trigger.kind: %q", t.Kind)
	}
	if t.Interval <= 0 {
		return fmt.Errorf("invalid trigger.interval: %v", t.Interval)
	}
	if t.MaxDelay < 0 || (t.MaxDelay > 0 && t.MaxDelay < t.Interval) {
		return fmt.Errorf("invalid trigger.max_delay: %v (must be 0 or >= interval)", t.MaxDelay)
	}
	if t.Limit < 0 {
		return fmt.Errorf("invalid trigger.limit: %d", t.Limit)
	}
	if t.SkipLate < 0 {
		return fmt.Errorf("invalid trigger.skip_late: %v", t.SkipLate)
	}
	return nil
}

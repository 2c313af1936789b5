// Command mexecd runs scheduled jobs from a configuration file on a managed executor and
// serves health, schedule and log level endpoints.
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/evan-idocoding/mexec/internal/config"
	"github.com/evan-idocoding/mexec/internal/daemon"
	"github.com/evan-idocoding/mexec/internal/observability"
)

func main() {
	os.Exit(run(context.Background(), ParseFlags(os.Args[1:])))
}

// run is the main entry point after CLI parsing.
func run(ctx context.Context, opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	logger, err := observability.Setup(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Close() }()

	zap.L().Debug("effective configuration", zap.Any("config", cfg))

	svc, err := daemon.New(*cfg, logger.Logger, logger.Level)
	if err != nil {
		zap.L().Error("failed to build service", zap.Error(err))
		return 1
	}
	if err := svc.Run(ctx); err != nil {
		zap.L().Error("service stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

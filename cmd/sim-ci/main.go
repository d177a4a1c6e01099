package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	simci "github.com/helioslab/sim-ci"
	"github.com/helioslab/sim-ci/exitcodes"
	"github.com/helioslab/sim-ci/flags"
	"github.com/helioslab/sim-ci/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "sim-ci"
	app.Usage = "Simulation Regression CI Orchestrator"
	app.Description = "sim-ci runs the regression pipeline: lint, per-toolchain suites, coverage aggregation and upload"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if simci.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if simci.IsSuiteFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.SuiteFailure))
			} else {
				// For other unspecified errors, default to suite failure
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.SuiteFailure))
			}
		}
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	// Start CLI
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(c *cli.Context) error {
	logger, err := newLogger(c.String(flags.LogLevel.Name))
	if err != nil {
		return simci.NewRuntimeError(fmt.Errorf("failed to set up logging: %w", err))
	}
	log.SetDefault(logger)

	cfg, err := simci.NewConfig(c, logger, c.String(flags.WorkDir.Name))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return simci.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	// Expose liveness and pipeline metrics for the CI host
	svc := service.New(service.Config{
		HealthzAddr: cfg.HealthzAddr,
		MetricsAddr: cfg.MetricsAddr,
		Log:         logger,
	})
	svc.Start(c.Context)
	defer svc.Shutdown()

	orch, err := simci.New(c.Context, cfg, Version)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return simci.NewRuntimeError(fmt.Errorf("failed to create orchestrator: %w", err))
	}

	if err := orch.Start(c.Context); err != nil {
		return err
	}
	if cfg.RunOnce {
		return nil
	}

	// Continuous mode: block until interrupted, then drain the periodic runner.
	<-c.Context.Done()
	if err := orch.Stop(context.Background()); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return orch.WaitForShutdown(waitCtx)
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := levelFromString(level)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)), nil
}

func levelFromString(level string) (slog.Level, error) {
	switch level {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

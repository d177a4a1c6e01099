package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SIM_CI"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	WorkDir = &cli.StringFlag{
		Name:     "workdir",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("WORKDIR"),
		Usage:    "Path to the simulation source tree containing the regression test directory",
	}
	PipelineConfig = &cli.StringFlag{
		Name:    "pipeline",
		Value:   "",
		EnvVars: prefixEnvVars("PIPELINE"),
		Usage:   "Path to pipeline config file (eg. 'pipeline.yaml'); empty uses the built-in catalog",
	}
	RunnerBin = &cli.StringFlag{
		Name:    "runner-bin",
		Value:   "tst/regression/run_tests.py",
		EnvVars: prefixEnvVars("RUNNER_BIN"),
		Usage:   "Path to the regression test runner, relative to the workdir",
	}
	ModuleBin = &cli.StringFlag{
		Name:    "module-bin",
		Value:   "module",
		EnvVars: prefixEnvVars("MODULE_BIN"),
		Usage:   "Environment modules command used to provision toolchain profiles",
	}
	LcovBin = &cli.StringFlag{
		Name:    "lcov-bin",
		Value:   "lcov",
		EnvVars: prefixEnvVars("LCOV_BIN"),
		Usage:   "Coverage merge tool",
	}
	GenhtmlBin = &cli.StringFlag{
		Name:    "genhtml-bin",
		Value:   "genhtml",
		EnvVars: prefixEnvVars("GENHTML_BIN"),
		Usage:   "Coverage report renderer",
	}
	CoverageDir = &cli.StringFlag{
		Name:    "coverage-dir",
		Value:   "tst/regression/obj",
		EnvVars: prefixEnvVars("COVERAGE_DIR"),
		Usage:   "Directory searched (non-recursively) for coverage tracefiles, relative to the workdir",
	}
	CoverageDescriptions = &cli.StringFlag{
		Name:    "coverage-descriptions",
		Value:   "",
		EnvVars: prefixEnvVars("COVERAGE_DESCRIPTIONS"),
		Usage:   "Optional description file mapping test names to human-readable descriptions",
	}
	UploadURL = &cli.StringFlag{
		Name:    "upload-url",
		Value:   "",
		EnvVars: prefixEnvVars("UPLOAD_URL"),
		Usage:   "Coverage service endpoint receiving the consolidated tracefile",
	}
	UploadToken = &cli.StringFlag{
		Name:    "upload-token",
		Value:   "",
		EnvVars: prefixEnvVars("UPLOAD_TOKEN"),
		Usage:   "Project token for the coverage service",
	}
	SkipUpload = &cli.BoolFlag{
		Name:    "skip-upload",
		Value:   false,
		EnvVars: prefixEnvVars("SKIP_UPLOAD"),
		Usage:   "Skip uploading the consolidated tracefile",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store per-suite runner logs",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "0.0.0.0:8080",
		EnvVars: prefixEnvVars("HEALTHZ_ADDR"),
		Usage:   "Listen address for the liveness endpoint",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "0.0.0.0:7300",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
		Usage:   "Listen address for the Prometheus metrics endpoint",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0 * time.Second,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between pipeline runs. Set to 0 to run once and exit",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "The lowest log level that will be output (debug, info, warn, error)",
	}
)

var requiredFlags = []cli.Flag{
	WorkDir,
}

var optionalFlags = []cli.Flag{
	PipelineConfig,
	RunnerBin,
	ModuleBin,
	LcovBin,
	GenhtmlBin,
	CoverageDir,
	CoverageDescriptions,
	UploadURL,
	UploadToken,
	SkipUpload,
	LogDir,
	HealthzAddr,
	MetricsAddr,
	RunInterval,
	LogLevel,
}

// Flags contains the list of configuration options available to the binary.
var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired verifies that all required flags were set.
func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

package simci

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/helioslab/sim-ci/flags"
)

// Config holds the application configuration
type Config struct {
	WorkDir              string        // Simulation source tree the runner and linters execute in
	PipelineFile         string        // Pipeline config path; empty selects the built-in catalog
	RunnerBin            string        // External regression test runner
	ModuleBin            string        // Environment modules command
	LcovBin              string        // Coverage merge tool
	GenhtmlBin           string        // Coverage report renderer
	CoverageDir          string        // Directory searched (non-recursively) for tracefiles
	CoverageDescriptions string        // Optional test description file for the rendered report
	UploadURL            string        // Coverage service endpoint; empty disables upload
	UploadToken          string        // Project token for the coverage service
	SkipUpload           bool          // Skip uploading the consolidated tracefile
	LogDir               string        // Directory to store per-suite runner logs
	HealthzAddr          string        // Listen address for the liveness endpoint
	MetricsAddr          string        // Listen address for the Prometheus metrics endpoint
	RunInterval          time.Duration // Interval between pipeline runs
	RunOnce              bool          // Indicates if the service should exit after one pipeline run
	Log                  log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, workDir string) (*Config, error) {
	// Parse flags
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if workDir == "" {
		return nil, errors.New("work directory is required")
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory '%s': %w", workDir, err)
	}

	pipelineFile := ctx.String(flags.PipelineConfig.Name)
	if pipelineFile != "" {
		pipelineFile, err = filepath.Abs(pipelineFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for pipeline config '%s': %w", pipelineFile, err)
		}
	}

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	// The coverage search root is conventionally inside the work tree
	coverageDir := ctx.String(flags.CoverageDir.Name)
	if !filepath.IsAbs(coverageDir) {
		coverageDir = filepath.Join(absWorkDir, coverageDir)
	}

	uploadURL := ctx.String(flags.UploadURL.Name)
	uploadToken := ctx.String(flags.UploadToken.Name)
	skipUpload := ctx.Bool(flags.SkipUpload.Name)
	if uploadURL != "" && uploadToken == "" && !skipUpload {
		return nil, errors.New("upload token is required when an upload URL is configured")
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		WorkDir:              absWorkDir,
		PipelineFile:         pipelineFile,
		RunnerBin:            ctx.String(flags.RunnerBin.Name),
		ModuleBin:            ctx.String(flags.ModuleBin.Name),
		LcovBin:              ctx.String(flags.LcovBin.Name),
		GenhtmlBin:           ctx.String(flags.GenhtmlBin.Name),
		CoverageDir:          coverageDir,
		CoverageDescriptions: ctx.String(flags.CoverageDescriptions.Name),
		UploadURL:            uploadURL,
		UploadToken:          uploadToken,
		SkipUpload:           skipUpload,
		LogDir:               logDir,
		HealthzAddr:          ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:          ctx.String(flags.MetricsAddr.Name),
		RunInterval:          runInterval,
		RunOnce:              runOnce,
		Log:                  log,
	}, nil
}

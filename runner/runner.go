// Package runner invokes the external regression test runner for one suite
// entry at a time and applies the entry's failure policy. Suite selection,
// build and execution are owned by the external runner; this package only
// assembles its invocation, captures its output and consumes its exit code.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"errors"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/helioslab/sim-ci/logging"
	"github.com/helioslab/sim-ci/types"
)

// CommandBuilder constructs the runner command. Tests inject fakes here.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// SuiteError indicates a strict suite invocation failed.
type SuiteError struct {
	Name     string
	Phase    types.PhaseID
	ExitCode int
}

func (e *SuiteError) Error() string {
	return fmt.Sprintf("suite %s failed in phase %s with exit code %d", e.Name, e.Phase, e.ExitCode)
}

// IsSuiteError checks if the error is or wraps a SuiteError.
func IsSuiteError(err error) bool {
	var suiteErr *SuiteError
	return err != nil && errors.As(err, &suiteErr)
}

// SuiteRunner runs catalog entries against the external test runner.
type SuiteRunner struct {
	runnerBin  string
	workDir    string
	log        log.Logger
	cmdBuilder CommandBuilder
	fileLogger *logging.FileLogger
	tracer     trace.Tracer
}

// Config holds configuration for creating a suite runner.
type Config struct {
	// RunnerBin is the path of the external test runner, resolved against
	// WorkDir when relative.
	RunnerBin string
	// WorkDir is the working directory the runner is invoked from.
	WorkDir    string
	Log        log.Logger
	CmdBuilder CommandBuilder
	// FileLogger receives the captured output of every invocation.
	// Optional; without it output is discarded after the exit code is read.
	FileLogger *logging.FileLogger
	Tracer     trace.Tracer
}

// NewSuiteRunner creates a new suite runner instance.
func NewSuiteRunner(cfg Config) (*SuiteRunner, error) {
	if cfg.RunnerBin == "" {
		return nil, fmt.Errorf("runner binary is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("suite runner")
	}

	return &SuiteRunner{
		runnerBin:  cfg.RunnerBin,
		workDir:    cfg.WorkDir,
		log:        cfg.Log,
		cmdBuilder: cfg.CmdBuilder,
		fileLogger: cfg.FileLogger,
		tracer:     cfg.Tracer,
	}, nil
}

// SetFileLogger directs captured suite output to the given per-run logger.
func (r *SuiteRunner) SetFileLogger(fl *logging.FileLogger) {
	r.fileLogger = fl
}

// Run invokes one suite entry and applies its failure policy. The call
// blocks until the runner returns; any MPI/OpenMP parallelism the suite
// spawns is contained within it. Strict failures carry a SuiteError in the
// result; tolerant failures are recorded with Tolerated set and no error.
func (r *SuiteRunner) Run(ctx context.Context, phase types.PhaseID, entry types.SuiteEntry) *types.ExecutionResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", entry.Name))
	defer span.End()

	args := buildArgs(entry)
	r.log.Info("Running suite", "phase", phase, "suite", entry.Name, "selectors", entry.Selectors, "tolerant", entry.Tolerant)

	cmd := r.cmdBuilder(ctx, r.runnerBin, args...)
	cmd.Dir = r.workDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &types.ExecutionResult{
		Name:     entry.Name,
		Phase:    phase,
		Status:   types.SuiteStatusPass,
		Duration: duration,
	}

	if runErr != nil {
		result.Status = types.SuiteStatusFail
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}

		if entry.Tolerant {
			result.Tolerated = true
			r.log.Warn("Tolerant suite failed, continuing",
				"phase", phase, "suite", entry.Name, "exit_code", result.ExitCode, "duration", duration)
		} else {
			result.Err = &SuiteError{Name: entry.Name, Phase: phase, ExitCode: result.ExitCode}
			r.log.Error("Suite failed",
				"phase", phase, "suite", entry.Name, "exit_code", result.ExitCode, "duration", duration)
		}
	} else {
		r.log.Info("Suite passed", "phase", phase, "suite", entry.Name, "duration", duration)
	}

	if r.fileLogger != nil {
		path, err := r.fileLogger.LogSuite(phase, entry.Name, output.Bytes())
		if err != nil {
			r.log.Error("Failed to store suite log", "suite", entry.Name, "error", err)
		} else {
			result.LogPath = path
		}
	}

	return result
}

// buildArgs assembles the external runner invocation for an entry. Selector
// tokens come first, followed by the recognized named options, all passed
// through unchanged.
func buildArgs(entry types.SuiteEntry) []string {
	args := append([]string{}, entry.Selectors...)

	for _, cfg := range entry.Config {
		args = append(args, fmt.Sprintf("--config=%s", cfg))
	}
	if entry.Coverage != "" {
		args = append(args, fmt.Sprintf("--coverage=%s", entry.Coverage))
	}
	if entry.MPIRun != "" {
		args = append(args, fmt.Sprintf("--mpirun=%s", entry.MPIRun))
	}
	if entry.RunOverride != "" {
		args = append(args, fmt.Sprintf("-r=%s", entry.RunOverride))
	}
	if entry.Silent {
		args = append(args, "--silent")
	}

	return args
}

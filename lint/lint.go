// Package lint runs the source style checks that gate the pipeline before
// any toolchain phase. Only exit codes are consumed.
package lint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"errors"

	"github.com/ethereum/go-ethereum/log"
)

// CommandBuilder constructs a lint check command. Tests inject fakes here.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// LintError indicates a style check failed. It is fatal to the pipeline.
type LintError struct {
	Check string
	Err   error
}

func (e *LintError) Error() string {
	return fmt.Sprintf("lint check %s failed: %v", e.Check, e.Err)
}

func (e *LintError) Unwrap() error {
	return e.Err
}

// IsLintError checks if the error is or wraps a LintError.
func IsLintError(err error) bool {
	var lintErr *LintError
	return err != nil && errors.As(err, &lintErr)
}

// Check is one style checker invocation.
type Check struct {
	Name string
	Cmd  string
	Args []string
}

// DefaultChecks returns the standard style gate: flake8 over the regression
// scripts and the C++ style checker script.
func DefaultChecks() []Check {
	return []Check{
		{Name: "flake8", Cmd: "python3", Args: []string{"-m", "flake8"}},
		{Name: "cpp-style", Cmd: "tst/style/check_style.sh"},
	}
}

// Linter runs the configured style checks in order.
type Linter struct {
	workDir    string
	checks     []Check
	log        log.Logger
	cmdBuilder CommandBuilder
}

// Config holds configuration for creating a linter.
type Config struct {
	WorkDir    string
	Checks     []Check
	Log        log.Logger
	CmdBuilder CommandBuilder
}

// New creates a new linter instance.
func New(cfg Config) (*Linter, error) {
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if len(cfg.Checks) == 0 {
		cfg.Checks = DefaultChecks()
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	return &Linter{
		workDir:    cfg.WorkDir,
		checks:     cfg.Checks,
		log:        cfg.Log,
		cmdBuilder: cfg.CmdBuilder,
	}, nil
}

// Run executes every check in order and returns a LintError for the first
// failure. A style violation aborts the pipeline.
func (l *Linter) Run(ctx context.Context) error {
	for _, check := range l.checks {
		l.log.Info("Running lint check", "check", check.Name)

		cmd := l.cmdBuilder(ctx, check.Cmd, check.Args...)
		cmd.Dir = l.workDir

		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		if err := cmd.Run(); err != nil {
			l.log.Error("Lint check failed", "check", check.Name, "output", output.String())
			return &LintError{Check: check.Name, Err: err}
		}
		l.log.Info("Lint check passed", "check", check.Name)
	}
	return nil
}

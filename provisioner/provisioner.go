// Package provisioner establishes compiler and library toolchain state
// between pipeline phases via the environment modules command. The active
// profile is explicit state owned by the caller; the process environment is
// never mutated behind its back.
package provisioner

import (
	"bytes"
	"context"
	"os/exec"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/helioslab/sim-ci/types"
)

// CommandBuilder constructs the command for one module operation. Tests
// inject fakes here.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// EnvError indicates a toolchain component could not be provisioned. It is
// fatal: no partial toolchain state is usable.
type EnvError struct {
	Module string
	Err    error
}

func (e *EnvError) Error() string {
	if e.Module == "" {
		return "environment error: " + e.Err.Error()
	}
	return "environment error: module " + e.Module + ": " + e.Err.Error()
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// IsEnvError checks if the error is or wraps an EnvError.
func IsEnvError(err error) bool {
	var envErr *EnvError
	return err != nil && errors.As(err, &envErr)
}

// Provisioner applies toolchain profiles with unload-then-load semantics.
type Provisioner struct {
	moduleBin  string
	log        log.Logger
	cmdBuilder CommandBuilder

	mu     sync.Mutex
	active *types.ToolchainProfile
}

// Config holds configuration for creating a provisioner.
type Config struct {
	// ModuleBin is the environment modules command.
	ModuleBin  string
	Log        log.Logger
	CmdBuilder CommandBuilder
}

// New creates a new provisioner instance.
func New(cfg Config) (*Provisioner, error) {
	if cfg.ModuleBin == "" {
		return nil, errors.New("module command is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	return &Provisioner{
		moduleBin:  cfg.ModuleBin,
		log:        cfg.Log,
		cmdBuilder: cfg.CmdBuilder,
	}, nil
}

// ApplyProfile replaces the active toolchain profile with the given one.
// The prior state is fully purged before the new modules are loaded, so
// switching HDF5/MPI builds never leaves stale library paths active. On a
// load failure the partially applied profile is purged again and an
// EnvError is returned.
func (p *Provisioner) ApplyProfile(ctx context.Context, profile types.ToolchainProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Info("Applying toolchain profile", "compiler", profile.Compiler, "modules", profile.Modules)

	if err := p.purge(ctx); err != nil {
		return &EnvError{Err: errors.Wrap(err, "purging previous profile")}
	}
	p.active = nil

	for _, mod := range profile.Modules {
		if err := p.runModule(ctx, "load", mod); err != nil {
			// Do not leave a half-loaded toolchain behind.
			if purgeErr := p.purge(ctx); purgeErr != nil {
				p.log.Error("Failed to purge after load failure", "module", mod, "error", purgeErr)
			}
			return &EnvError{Module: mod, Err: errors.Wrap(err, "loading module")}
		}
		p.log.Debug("Loaded module", "module", mod)
	}

	p.active = &profile
	return nil
}

// Reset purges all loaded modules and clears the active profile. Called on
// pipeline abort so no partial toolchain stays active.
func (p *Provisioner) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Info("Resetting toolchain state")
	if err := p.purge(ctx); err != nil {
		return &EnvError{Err: errors.Wrap(err, "purging toolchain state")}
	}
	p.active = nil
	return nil
}

// Active returns the currently applied profile, or nil if none is active.
func (p *Provisioner) Active() *types.ToolchainProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Provisioner) purge(ctx context.Context) error {
	return p.runModule(ctx, "purge")
}

func (p *Provisioner) runModule(ctx context.Context, args ...string) error {
	cmd := p.cmdBuilder(ctx, p.moduleBin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return errors.Wrapf(err, "%s %v: %s", p.moduleBin, args, stderr.String())
		}
		return errors.Wrapf(err, "%s %v", p.moduleBin, args)
	}
	return nil
}

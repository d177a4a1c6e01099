package types

import "fmt"

// SuiteEntry is one invocation of the external regression test runner.
// Selector tokens map to suite definitions owned by the runner; everything
// else is passed through unchanged as named options.
type SuiteEntry struct {
	Name      string   `yaml:"name"`
	Selectors []string `yaml:"selectors"`
	// Config holds compiler/flag overrides, each applied independently by
	// the runner (repeatable --config option).
	Config []string `yaml:"config,omitempty"`
	// Coverage is the coverage-capture command. Its presence also switches
	// the runner to a lower-optimization instrumented build.
	Coverage string `yaml:"coverage,omitempty"`
	// MPIRun names the parallel launch wrapper (e.g. mpirun, srun).
	MPIRun string `yaml:"mpirun,omitempty"`
	// RunOverride is a run-time override string forwarded to the runner,
	// typically a reduced iteration or time limit for coverage sampling.
	RunOverride string `yaml:"run_override,omitempty"`
	// Tolerant marks entries whose failure is logged but never aborts the
	// pipeline. Used for reduced-settings coverage passes of suites that
	// also run at full fidelity under a strict entry.
	Tolerant bool `yaml:"tolerant,omitempty"`
	// Silent suppresses the runner's sub-build stdout.
	Silent bool `yaml:"silent,omitempty"`
}

// Validate checks the entry is well-formed.
func (e SuiteEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("suite entry has no name")
	}
	if len(e.Selectors) == 0 {
		return fmt.Errorf("suite entry %q has no selectors", e.Name)
	}
	for _, sel := range e.Selectors {
		if sel == "" {
			return fmt.Errorf("suite entry %q has an empty selector", e.Name)
		}
	}
	return nil
}

// HasCoverage reports whether this entry captures coverage data.
func (e SuiteEntry) HasCoverage() bool {
	return e.Coverage != ""
}

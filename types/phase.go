package types

import "fmt"

// PhaseID identifies one toolchain phase of the pipeline.
type PhaseID string

const (
	// PhaseStyle lints source style only; it activates no toolchain and
	// produces no coverage artifacts.
	PhaseStyle PhaseID = "style"
	// PhaseGnuSerialIO runs the GNU toolchain against the serial HDF5 build.
	PhaseGnuSerialIO PhaseID = "gnu-serial-io"
	// PhaseGnuParallelIO runs the GNU toolchain against the parallel HDF5 build.
	PhaseGnuParallelIO PhaseID = "gnu-parallel-io"
	// PhaseIntelMPI runs the correctness-focused Intel/MPI sweep.
	PhaseIntelMPI PhaseID = "intel-mpi"
	// PhaseIntelVector checks vectorization correctness with inlining and IPO disabled.
	PhaseIntelVector PhaseID = "intel-vector"
)

// IsValid returns true if the phase ID is one of the known pipeline phases.
func (p PhaseID) IsValid() bool {
	switch p {
	case PhaseStyle, PhaseGnuSerialIO, PhaseGnuParallelIO, PhaseIntelMPI, PhaseIntelVector:
		return true
	default:
		return false
	}
}

// ToolchainProfile describes the compiler and environment module set active
// for a phase. A profile replaces the previous one entirely; the provisioner
// purges all loaded modules before loading a new profile so no stale library
// paths survive a toolchain switch.
type ToolchainProfile struct {
	Compiler string   `yaml:"compiler"`
	Modules  []string `yaml:"modules"`
}

// IsZero reports whether no profile was configured for a phase.
func (t ToolchainProfile) IsZero() bool {
	return t.Compiler == "" && len(t.Modules) == 0
}

// Phase is one entry of the pipeline table: a toolchain profile plus the
// ordered suite entries to run under it. Ordering within Entries is
// meaningful and preserved as configured.
type Phase struct {
	ID          PhaseID          `yaml:"id"`
	Description string           `yaml:"description"`
	Lint        bool             `yaml:"lint,omitempty"`
	Profile     ToolchainProfile `yaml:"profile,omitempty"`
	Entries     []SuiteEntry     `yaml:"entries,omitempty"`
}

// PipelineConfig is the full, hand-curated pipeline: an ordered list of
// phases consumed by one generic phase-runner.
type PipelineConfig struct {
	Phases []Phase `yaml:"phases"`
}

// Validate checks structural invariants of the pipeline table: known phase
// IDs, unique phase IDs, a toolchain profile on every non-lint phase, unique
// entry names within a phase and non-empty selectors on every entry.
func (p *PipelineConfig) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("pipeline has no phases")
	}

	seenPhases := make(map[PhaseID]bool)
	for _, phase := range p.Phases {
		if !phase.ID.IsValid() {
			return fmt.Errorf("unknown phase %q", phase.ID)
		}
		if seenPhases[phase.ID] {
			return fmt.Errorf("duplicate phase %q", phase.ID)
		}
		seenPhases[phase.ID] = true

		if phase.Lint {
			if len(phase.Entries) > 0 {
				return fmt.Errorf("phase %q: lint phases must not declare suite entries", phase.ID)
			}
			continue
		}

		if phase.Profile.IsZero() {
			return fmt.Errorf("phase %q: toolchain profile is required", phase.ID)
		}
		if len(phase.Entries) == 0 {
			return fmt.Errorf("phase %q: at least one suite entry is required", phase.ID)
		}

		seenEntries := make(map[string]bool)
		for _, entry := range phase.Entries {
			if err := entry.Validate(); err != nil {
				return fmt.Errorf("phase %q: %w", phase.ID, err)
			}
			if seenEntries[entry.Name] {
				return fmt.Errorf("phase %q: duplicate suite entry %q", phase.ID, entry.Name)
			}
			seenEntries[entry.Name] = true
		}
	}
	return nil
}

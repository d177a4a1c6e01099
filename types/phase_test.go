package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() *PipelineConfig {
	return &PipelineConfig{
		Phases: []Phase{
			{ID: PhaseStyle, Lint: true},
			{
				ID:      PhaseGnuSerialIO,
				Profile: ToolchainProfile{Compiler: "g++", Modules: []string{"gcc/12.2.0"}},
				Entries: []SuiteEntry{
					{Name: "hydro", Selectors: []string{"hydro"}},
					{Name: "mhd", Selectors: []string{"mhd"}},
				},
			},
		},
	}
}

func TestPhaseIDIsValid(t *testing.T) {
	for _, id := range []PhaseID{PhaseStyle, PhaseGnuSerialIO, PhaseGnuParallelIO, PhaseIntelMPI, PhaseIntelVector} {
		assert.True(t, id.IsValid(), "expected %q to be valid", id)
	}
	assert.False(t, PhaseID("gnu").IsValid())
	assert.False(t, PhaseID("").IsValid())
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PipelineConfig)
		wantErr string
	}{
		{
			name:   "valid pipeline",
			mutate: func(p *PipelineConfig) {},
		},
		{
			name:    "no phases",
			mutate:  func(p *PipelineConfig) { p.Phases = nil },
			wantErr: "no phases",
		},
		{
			name:    "unknown phase",
			mutate:  func(p *PipelineConfig) { p.Phases[1].ID = "gnu" },
			wantErr: "unknown phase",
		},
		{
			name: "duplicate phase",
			mutate: func(p *PipelineConfig) {
				p.Phases = append(p.Phases, p.Phases[1])
			},
			wantErr: "duplicate phase",
		},
		{
			name: "lint phase with entries",
			mutate: func(p *PipelineConfig) {
				p.Phases[0].Entries = []SuiteEntry{{Name: "hydro", Selectors: []string{"hydro"}}}
			},
			wantErr: "must not declare suite entries",
		},
		{
			name: "missing profile",
			mutate: func(p *PipelineConfig) {
				p.Phases[1].Profile = ToolchainProfile{}
			},
			wantErr: "toolchain profile is required",
		},
		{
			name: "phase without entries",
			mutate: func(p *PipelineConfig) {
				p.Phases[1].Entries = nil
			},
			wantErr: "at least one suite entry",
		},
		{
			name: "duplicate entry name within phase",
			mutate: func(p *PipelineConfig) {
				p.Phases[1].Entries[1].Name = "hydro"
			},
			wantErr: "duplicate suite entry",
		},
		{
			name: "entry without selectors",
			mutate: func(p *PipelineConfig) {
				p.Phases[1].Entries[0].Selectors = nil
			},
			wantErr: "no selectors",
		},
		{
			name: "entry with empty selector",
			mutate: func(p *PipelineConfig) {
				p.Phases[1].Entries[0].Selectors = []string{""}
			},
			wantErr: "empty selector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSuiteEntrySameNameAcrossPhasesAllowed(t *testing.T) {
	p := validPipeline()
	p.Phases = append(p.Phases, Phase{
		ID:      PhaseIntelMPI,
		Profile: ToolchainProfile{Compiler: "icpc", Modules: []string{"intel/2023.1"}},
		Entries: []SuiteEntry{{Name: "hydro", Selectors: []string{"hydro"}}},
	})
	require.NoError(t, p.Validate())
}

func TestExecutionResultBlocking(t *testing.T) {
	strictFail := &ExecutionResult{Status: SuiteStatusFail}
	assert.True(t, strictFail.Blocking())

	toleratedFail := &ExecutionResult{Status: SuiteStatusFail, Tolerated: true}
	assert.False(t, toleratedFail.Blocking())

	pass := &ExecutionResult{Status: SuiteStatusPass}
	assert.False(t, pass.Blocking())
	assert.True(t, pass.Passed())
}

func TestSuiteEntryHasCoverage(t *testing.T) {
	assert.True(t, SuiteEntry{Coverage: "lcov"}.HasCoverage())
	assert.False(t, SuiteEntry{}.HasCoverage())
}

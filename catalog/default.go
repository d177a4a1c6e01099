package catalog

import "github.com/helioslab/sim-ci/types"

// DefaultPipeline is the built-in pipeline table, mirroring the production
// CI sweep. Ordering is deliberate: cheap correctness checks run before
// expensive coverage runs, and serial-HDF5 suites run before the toolchain
// switches to the parallel-HDF5 build.
//
// Several suites appear twice within a phase: a reduced-settings coverage
// pass (tolerant, run-time override) followed by a full-fidelity strict
// pass. Only the full pass gates correctness; the reduced pass exists to
// exercise code paths for coverage measurement, so its functional failure
// is recorded but never aborts the pipeline.
func DefaultPipeline() *types.PipelineConfig {
	gnuProfile := types.ToolchainProfile{
		Compiler: "g++",
		Modules:  []string{"gcc/12.2.0", "openmpi/4.1.5", "fftw/3.3.10", "lcov/1.16"},
	}
	gnuParallelProfile := types.ToolchainProfile{
		Compiler: "g++",
		Modules:  []string{"gcc/12.2.0", "openmpi/4.1.5", "fftw/3.3.10", "hdf5/1.12.2-parallel", "lcov/1.16"},
	}
	intelProfile := types.ToolchainProfile{
		Compiler: "icpc",
		Modules:  []string{"intel/2023.1", "impi/2021.9", "fftw/3.3.10", "hdf5/1.12.2-parallel"},
	}

	return &types.PipelineConfig{
		Phases: []types.Phase{
			{
				ID:          types.PhaseStyle,
				Description: "Source style checks",
				Lint:        true,
			},
			{
				ID:          types.PhaseGnuSerialIO,
				Description: "GNU toolchain, serial HDF5, broad coverage collection",
				Profile: types.ToolchainProfile{
					Compiler: "g++",
					Modules:  append(append([]string{}, gnuProfile.Modules...), "hdf5/1.12.2-serial"),
				},
				Entries: []types.SuiteEntry{
					{Name: "pgen", Selectors: []string{"pgen"}, Silent: true},
					{Name: "hydro", Selectors: []string{"hydro"}, Coverage: "lcov", Silent: true},
					{Name: "outputs", Selectors: []string{"outputs"}, Coverage: "lcov", Silent: true},
					{Name: "curvilinear", Selectors: []string{"curvilinear"}, Coverage: "lcov", Silent: true},
					{Name: "eos", Selectors: []string{"eos"}, Coverage: "lcov", Silent: true},
					{Name: "grav", Selectors: []string{"grav"}, Coverage: "lcov", MPIRun: "mpirun", Silent: true},
					{Name: "amr", Selectors: []string{"amr"}, Coverage: "lcov", MPIRun: "mpirun", Silent: true},
					{Name: "mhd-coverage", Selectors: []string{"mhd"}, Coverage: "lcov",
						RunOverride: "time/nlim=20", Tolerant: true, Silent: true},
					{Name: "mhd", Selectors: []string{"mhd"}, Silent: true},
					{Name: "shearingbox-coverage", Selectors: []string{"shearingbox"}, Coverage: "lcov",
						RunOverride: "time/nlim=10", Tolerant: true, Silent: true},
					{Name: "shearingbox", Selectors: []string{"shearingbox"}, Silent: true},
					{Name: "diffusion-coverage", Selectors: []string{"diffusion"}, Coverage: "lcov",
						RunOverride: "time/nlim=10", Tolerant: true, Silent: true},
					{Name: "diffusion", Selectors: []string{"diffusion"}, Silent: true},
					{Name: "hydro4-coverage", Selectors: []string{"hydro4"}, Coverage: "lcov",
						RunOverride: "time/nlim=10", Tolerant: true, Silent: true},
					{Name: "hydro4", Selectors: []string{"hydro4"}, Silent: true},
				},
			},
			{
				ID:          types.PhaseGnuParallelIO,
				Description: "GNU toolchain, parallel HDF5",
				Profile:     gnuParallelProfile,
				Entries: []types.SuiteEntry{
					{Name: "mpi", Selectors: []string{"mpi"}, Coverage: "lcov", MPIRun: "mpirun", Silent: true},
					{Name: "omp", Selectors: []string{"omp"}, Coverage: "lcov", Silent: true},
					{Name: "hybrid", Selectors: []string{"hybrid"}, Coverage: "lcov", MPIRun: "mpirun", Silent: true},
					{Name: "pgen-hdf5", Selectors: []string{"pgen_hdf5"}, Coverage: "lcov", MPIRun: "mpirun", Silent: true},
				},
			},
			{
				ID:          types.PhaseIntelMPI,
				Description: "Intel toolchain correctness sweep",
				Profile:     intelProfile,
				Entries: []types.SuiteEntry{
					{Name: "hydro", Selectors: []string{"hydro"},
						Config: []string{"--cxx=icpc"}, Silent: true},
					{Name: "mhd", Selectors: []string{"mhd"},
						Config: []string{"--cxx=icpc"}, Silent: true},
					{Name: "mpi", Selectors: []string{"mpi"},
						Config: []string{"--cxx=icpc"}, MPIRun: "mpiexec", Silent: true},
					{Name: "grav", Selectors: []string{"grav"},
						Config: []string{"--cxx=icpc"}, MPIRun: "mpiexec", Silent: true},
				},
			},
			{
				ID:          types.PhaseIntelVector,
				Description: "Intel vectorization correctness, inlining and IPO disabled",
				Profile:     intelProfile,
				Entries: []types.SuiteEntry{
					{Name: "hydro-novec", Selectors: []string{"hydro"},
						Config: []string{"--cxx=icpc", "--cflag=-qno-ipo -fno-inline"}, Silent: true},
					{Name: "mhd-novec", Selectors: []string{"mhd"},
						Config: []string{"--cxx=icpc", "--cflag=-qno-ipo -fno-inline"}, Silent: true},
				},
			},
		},
	}
}

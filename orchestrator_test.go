package simci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/helioslab/sim-ci/catalog"
	"github.com/helioslab/sim-ci/coverage"
	"github.com/helioslab/sim-ci/logging"
	"github.com/helioslab/sim-ci/types"
)

// testPipeline mirrors the shape of the production catalog at reduced size:
// a lint gate, a GNU phase with a strict suite plus the reduced/full mhd
// pair, and an Intel phase.
const testPipeline = `
phases:
  - id: style
    description: Source style checks
    lint: true
  - id: gnu-serial-io
    description: GNU serial HDF5
    profile:
      compiler: g++
      modules: [gcc, hdf5/serial]
    entries:
      - name: grav
        selectors: [grav]
        mpirun: mpirun
      - name: mhd-coverage
        selectors: [mhd]
        coverage: lcov
        run_override: time/nlim=20
        tolerant: true
      - name: mhd
        selectors: [mhd]
  - id: intel-mpi
    description: Intel MPI correctness
    profile:
      compiler: icpc
      modules: [intel, impi]
    entries:
      - name: mpi
        selectors: [mpi]
        config: ["--cxx=icpc"]
`

type fakeRunner struct {
	// failures maps suite names to a forced failure
	failures    map[string]bool
	invocations []string
}

func (r *fakeRunner) Run(ctx context.Context, phase types.PhaseID, entry types.SuiteEntry) *types.ExecutionResult {
	r.invocations = append(r.invocations, fmt.Sprintf("%s/%s", phase, entry.Name))

	res := &types.ExecutionResult{
		Name:   entry.Name,
		Phase:  phase,
		Status: types.SuiteStatusPass,
	}
	if r.failures[entry.Name] {
		res.Status = types.SuiteStatusFail
		res.ExitCode = 1
		res.Tolerated = entry.Tolerant
	}
	return res
}

type fakeLinter struct {
	err    error
	called bool
}

func (l *fakeLinter) Run(ctx context.Context) error {
	l.called = true
	return l.err
}

type fakeProvisioner struct {
	applied    []string
	resetCalls int
	applyErr   error
}

func (p *fakeProvisioner) ApplyProfile(ctx context.Context, profile types.ToolchainProfile) error {
	if p.applyErr != nil {
		return p.applyErr
	}
	p.applied = append(p.applied, profile.Compiler)
	return nil
}

func (p *fakeProvisioner) Reset(ctx context.Context) error {
	p.resetCalls++
	return nil
}

type fakeAggregator struct {
	searchRoots []string
	report      *coverage.ConsolidatedReport
	err         error
}

func (a *fakeAggregator) Aggregate(ctx context.Context, searchRoot string) (*coverage.ConsolidatedReport, error) {
	a.searchRoots = append(a.searchRoots, searchRoot)
	if a.err != nil {
		return nil, a.err
	}
	return a.report, nil
}

type fakeUploader struct {
	tracefiles []string
	err        error
}

func (u *fakeUploader) Upload(ctx context.Context, tracefile string) error {
	u.tracefiles = append(u.tracefiles, tracefile)
	return u.err
}

type orchestratorFakes struct {
	runner      *fakeRunner
	linter      *fakeLinter
	provisioner *fakeProvisioner
	aggregator  *fakeAggregator
	uploader    *fakeUploader
}

func newTestOrchestrator(t *testing.T, fakes *orchestratorFakes) *Orchestrator {
	t.Helper()

	pipelineFile := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(pipelineFile, []byte(testPipeline), 0644))

	logger := log.NewLogger(log.DiscardHandler())
	cat, err := catalog.New(catalog.Config{
		Log:          logger,
		PipelineFile: pipelineFile,
	})
	require.NoError(t, err)

	cfg := &Config{
		WorkDir:     t.TempDir(),
		CoverageDir: filepath.Join(t.TempDir(), "obj"),
		LogDir:      t.TempDir(),
		RunOnce:     true,
		Log:         logger,
	}

	formatter := NewConsoleResultFormatter(logger)
	formatter.out = io.Discard

	o := &Orchestrator{
		config:      cfg,
		catalog:     cat,
		provisioner: fakes.provisioner,
		linter:      fakes.linter,
		runner:      fakes.runner,
		aggregator:  fakes.aggregator,
		uploader:    fakes.uploader,
		formatter:   formatter,
		reporter:    NewDefaultMetricsReporter(),
		tracer:      otel.Tracer("pipeline"),
		done:        make(chan struct{}),
	}
	return o
}

// recordingTracer captures span names without a tracer provider.
type recordingTracer struct {
	embedded.Tracer
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.spans = append(t.spans, name)
	return ctx, noop.Span{}
}

func defaultFakes() *orchestratorFakes {
	return &orchestratorFakes{
		runner:      &fakeRunner{failures: map[string]bool{}},
		linter:      &fakeLinter{},
		provisioner: &fakeProvisioner{},
		aggregator: &fakeAggregator{report: &coverage.ConsolidatedReport{
			Tracefile: "obj/lcov.info",
			HTMLDir:   "obj/html",
		}},
		uploader: &fakeUploader{},
	}
}

func TestRunPipelineAllPass(t *testing.T) {
	fakes := defaultFakes()
	o := newTestOrchestrator(t, fakes)

	require.NoError(t, o.Start(context.Background()))

	result := o.Result()
	require.NotNil(t, result)
	assert.Equal(t, types.SuiteStatusPass, result.Status)
	assert.False(t, result.Aborted)

	assert.True(t, fakes.linter.called)
	assert.Equal(t, []string{
		"gnu-serial-io/grav",
		"gnu-serial-io/mhd-coverage",
		"gnu-serial-io/mhd",
		"intel-mpi/mpi",
	}, fakes.runner.invocations)

	// Each toolchain phase activates its own profile; the toolchain is
	// reset once after the last phase.
	assert.Equal(t, []string{"g++", "icpc"}, fakes.provisioner.applied)
	assert.Equal(t, 1, fakes.provisioner.resetCalls)

	assert.Equal(t, []string{o.config.CoverageDir}, fakes.aggregator.searchRoots)
	assert.Equal(t, []string{"obj/lcov.info"}, fakes.uploader.tracefiles)
	assert.Equal(t, fakes.aggregator.report, result.Report)

	assert.Equal(t, 4, result.Stats.Total)
	assert.Equal(t, 4, result.Stats.Passed)
	assert.Equal(t, 0, result.Stats.Failed)
}

func TestStrictFailureAbortsPipeline(t *testing.T) {
	fakes := defaultFakes()
	fakes.runner.failures["grav"] = true
	o := newTestOrchestrator(t, fakes)

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsSuiteFailureError(err))
	assert.False(t, IsRuntimeError(err))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusFail, result.Status)
	assert.True(t, result.Aborted)

	// Nothing after the failing suite runs, in or beyond its phase
	assert.Equal(t, []string{"gnu-serial-io/grav"}, fakes.runner.invocations)
	assert.Equal(t, []string{"g++"}, fakes.provisioner.applied)

	// The toolchain is still reset, but no coverage work happens
	assert.Equal(t, 1, fakes.provisioner.resetCalls)
	assert.Empty(t, fakes.aggregator.searchRoots)
	assert.Empty(t, fakes.uploader.tracefiles)
	assert.Nil(t, result.Report)
}

func TestTolerantFailureContinues(t *testing.T) {
	fakes := defaultFakes()
	fakes.runner.failures["mhd-coverage"] = true
	o := newTestOrchestrator(t, fakes)

	require.NoError(t, o.Start(context.Background()))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusPass, result.Status)
	assert.False(t, result.Aborted)

	// The full-fidelity mhd run still executes after its reduced pass fails
	assert.Equal(t, []string{
		"gnu-serial-io/grav",
		"gnu-serial-io/mhd-coverage",
		"gnu-serial-io/mhd",
		"intel-mpi/mpi",
	}, fakes.runner.invocations)

	assert.Equal(t, 4, result.Stats.Total)
	assert.Equal(t, 3, result.Stats.Passed)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 1, result.Stats.Tolerated)

	assert.Len(t, fakes.aggregator.searchRoots, 1)
}

func TestLintFailureAbortsBeforeToolchains(t *testing.T) {
	fakes := defaultFakes()
	fakes.linter.err = errors.New("flake8: E501 line too long")
	o := newTestOrchestrator(t, fakes)

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsSuiteFailureError(err))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusFail, result.Status)
	assert.True(t, result.Aborted)

	// No toolchain was provisioned and no suite ran
	assert.Empty(t, fakes.provisioner.applied)
	assert.Empty(t, fakes.runner.invocations)
	assert.Empty(t, fakes.aggregator.searchRoots)
}

func TestProvisioningFailureIsRuntimeError(t *testing.T) {
	fakes := defaultFakes()
	fakes.provisioner.applyErr = errors.New("module load gcc failed")
	o := newTestOrchestrator(t, fakes)

	err := o.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsSuiteFailureError(err))

	assert.Empty(t, fakes.runner.invocations)
	// The partially provisioned toolchain is still cleaned up
	assert.Equal(t, 1, fakes.provisioner.resetCalls)
}

func TestAggregationFailureDoesNotFailRun(t *testing.T) {
	fakes := defaultFakes()
	fakes.aggregator.err = &coverage.AggregationError{Msg: "no tracefiles found"}
	o := newTestOrchestrator(t, fakes)

	require.NoError(t, o.Start(context.Background()))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusPass, result.Status)
	assert.Nil(t, result.Report)
	assert.Empty(t, fakes.uploader.tracefiles)
}

func TestUploadFailureDoesNotFailRun(t *testing.T) {
	fakes := defaultFakes()
	fakes.uploader.err = &coverage.UploadError{Err: errors.New("status 500")}
	o := newTestOrchestrator(t, fakes)

	require.NoError(t, o.Start(context.Background()))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusPass, result.Status)
	assert.Equal(t, fakes.aggregator.report, result.Report)
	assert.Len(t, fakes.uploader.tracefiles, 1)
}

func TestNoUploaderKeepsReportLocal(t *testing.T) {
	fakes := defaultFakes()
	fakes.uploader = nil
	o := newTestOrchestrator(t, fakes)
	o.uploader = nil

	require.NoError(t, o.Start(context.Background()))

	result := o.Result()
	assert.Equal(t, types.SuiteStatusPass, result.Status)
	assert.Equal(t, fakes.aggregator.report, result.Report)
}

func TestRunPipelineWritesSummary(t *testing.T) {
	fakes := defaultFakes()
	o := newTestOrchestrator(t, fakes)

	require.NoError(t, o.Start(context.Background()))

	entries, err := os.ReadDir(o.config.LogDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), logging.RunDirectoryPrefix)

	runDir := filepath.Join(o.config.LogDir, entries[0].Name())
	data, err := os.ReadFile(filepath.Join(runDir, logging.SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pipeline "+o.Result().RunID)
}

func TestRunPipelineTracesPhases(t *testing.T) {
	fakes := defaultFakes()
	o := newTestOrchestrator(t, fakes)
	tracer := &recordingTracer{}
	o.tracer = tracer

	require.NoError(t, o.Start(context.Background()))

	assert.Equal(t, []string{
		"phase style",
		"phase gnu-serial-io",
		"phase intel-mpi",
	}, tracer.spans)
}

func TestResultSafeForConcurrentReads(t *testing.T) {
	fakes := defaultFakes()
	o := newTestOrchestrator(t, fakes)

	done := make(chan error, 1)
	go func() {
		done <- o.Start(context.Background())
	}()

	// Poll while the run is in flight; the race detector flags unsynchronized
	// access to the stored result.
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			require.NotNil(t, o.Result())
			return
		default:
			_ = o.Result()
		}
	}
}

func TestContinuousModeStartStop(t *testing.T) {
	fakes := defaultFakes()
	o := newTestOrchestrator(t, fakes)
	o.config.RunOnce = false
	o.config.RunInterval = time.Hour

	require.NoError(t, o.Start(context.Background()))
	assert.False(t, o.Stopped())

	// The startup run already happened synchronously
	assert.Len(t, fakes.runner.invocations, 4)

	require.NoError(t, o.Stop(context.Background()))
	assert.True(t, o.Stopped())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.WaitForShutdown(ctx))

	// Stopping twice is a no-op
	require.NoError(t, o.Stop(context.Background()))
}

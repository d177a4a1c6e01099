package simci

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/helioslab/sim-ci/catalog"
	"github.com/helioslab/sim-ci/coverage"
	"github.com/helioslab/sim-ci/lint"
	"github.com/helioslab/sim-ci/logging"
	"github.com/helioslab/sim-ci/metrics"
	"github.com/helioslab/sim-ci/provisioner"
	"github.com/helioslab/sim-ci/runner"
	"github.com/helioslab/sim-ci/types"
)

// Collaborator contracts, satisfied by the concrete components and by fakes
// in tests.
type suiteRunner interface {
	Run(ctx context.Context, phase types.PhaseID, entry types.SuiteEntry) *types.ExecutionResult
}

type suiteRunnerWithFileLogger interface {
	suiteRunner
	SetFileLogger(fl *logging.FileLogger)
}

type styleLinter interface {
	Run(ctx context.Context) error
}

type toolchainProvisioner interface {
	ApplyProfile(ctx context.Context, profile types.ToolchainProfile) error
	Reset(ctx context.Context) error
}

type coverageAggregator interface {
	Aggregate(ctx context.Context, searchRoot string) (*coverage.ConsolidatedReport, error)
}

type reportUploader interface {
	Upload(ctx context.Context, tracefile string) error
}

// Orchestrator is the pipeline driver: it sequences lint, the per-toolchain
// suite phases, coverage aggregation and upload, aborting on the first
// non-tolerant failure. Execution is fully sequential; each suite runs to
// completion before the next begins.
type Orchestrator struct {
	ctx         context.Context
	config      *Config
	version     string
	catalog     *catalog.Catalog
	provisioner toolchainProvisioner
	linter      styleLinter
	runner      suiteRunner
	aggregator  coverageAggregator
	uploader    reportUploader
	formatter   ResultFormatter
	reporter    MetricsReporter
	tracer      trace.Tracer

	resultMu sync.Mutex
	result   *PipelineResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New wires the pipeline driver and its concrete collaborators from config.
func New(ctx context.Context, config *Config, version string) (*Orchestrator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating orchestrator with config",
		"workDir", config.WorkDir,
		"pipelineFile", config.PipelineFile,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	cat, err := catalog.New(catalog.Config{
		Log:          config.Log,
		PipelineFile: config.PipelineFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}

	prov, err := provisioner.New(provisioner.Config{
		ModuleBin: config.ModuleBin,
		Log:       config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provisioner: %w", err)
	}

	linter, err := lint.New(lint.Config{
		WorkDir: config.WorkDir,
		Log:     config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create linter: %w", err)
	}

	suiteRunner, err := runner.NewSuiteRunner(runner.Config{
		RunnerBin: config.RunnerBin,
		WorkDir:   config.WorkDir,
		Log:       config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create suite runner: %w", err)
	}

	aggregator, err := coverage.New(coverage.Config{
		LcovBin:         config.LcovBin,
		GenhtmlBin:      config.GenhtmlBin,
		DescriptionFile: config.CoverageDescriptions,
		Log:             config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	var uploader reportUploader
	if config.UploadURL != "" && !config.SkipUpload {
		up, err := coverage.NewUploader(coverage.UploaderConfig{
			URL:   config.UploadURL,
			Token: config.UploadToken,
			Log:   config.Log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create uploader: %w", err)
		}
		uploader = up
	}

	config.Log.Info("orchestrator.New: created catalog, provisioner, linter and suite runner")

	return &Orchestrator{
		ctx:         ctx,
		config:      config,
		version:     version,
		catalog:     cat,
		provisioner: prov,
		linter:      linter,
		runner:      suiteRunner,
		aggregator:  aggregator,
		uploader:    uploader,
		formatter:   NewConsoleResultFormatter(config.Log),
		reporter:    NewDefaultMetricsReporter(),
		tracer:      otel.Tracer("pipeline"),
		done:        make(chan struct{}),
	}, nil
}

// Start runs the pipeline, once or periodically at the configured interval.
// In run-once mode it blocks until the run finishes and returns a
// SuiteFailureError when lint or a strict suite failed.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.ctx = ctx
	o.done = make(chan struct{})
	o.running.Store(true)

	if o.config.RunOnce {
		o.config.Log.Info("Starting sim-ci in run-once mode", "version", o.version)
	} else {
		o.config.Log.Info("Starting sim-ci in continuous mode", "version", o.version, "interval", o.config.RunInterval)
	}

	// Run the pipeline immediately on startup
	if err := o.runPipeline(ctx); err != nil {
		o.config.Log.Error("Runtime error running pipeline", "error", err)
		return NewRuntimeError(err)
	}

	if o.config.RunOnce {
		o.running.Store(false)
		if result := o.Result(); result != nil && result.Status == types.SuiteStatusFail {
			o.config.Log.Warn("Pipeline completed with failures, returning exit code 1")
			return NewSuiteFailureError(result.String())
		}
		return nil
	}

	// Start a goroutine for periodic pipeline execution
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.config.Log.Debug("Starting periodic pipeline goroutine", "interval", o.config.RunInterval)

		for {
			select {
			case <-time.After(o.config.RunInterval):
				if !o.running.Load() {
					o.config.Log.Debug("Service stopped, exiting periodic pipeline runner")
					return
				}

				o.config.Log.Info("Running periodic pipeline")
				if err := o.runPipeline(ctx); err != nil {
					o.config.Log.Error("Error running periodic pipeline", "error", err)
				}

			case <-o.done:
				o.config.Log.Debug("Done signal received, stopping periodic pipeline runner")
				return

			case <-ctx.Done():
				o.config.Log.Debug("Context canceled, stopping periodic pipeline runner")
				o.running.Store(false)
				return
			}
		}
	}()
	o.config.Log.Debug("sim-ci started successfully")
	return nil
}

// runPipeline executes one full pipeline sweep: every catalog phase in
// order, then coverage aggregation and upload. It returns an error only for
// runtime conditions (unusable toolchain, unusable log directory); suite
// and lint failures are recorded in the result instead.
func (o *Orchestrator) runPipeline(ctx context.Context) error {
	runID := uuid.New().String()
	start := time.Now()
	o.config.Log.Info("Running pipeline", "run_id", runID)

	fileLogger, err := logging.NewFileLogger(o.config.LogDir, runID)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLogger.Close()
	if r, ok := o.runner.(suiteRunnerWithFileLogger); ok {
		r.SetFileLogger(fileLogger)
	}

	result := &PipelineResult{
		RunID:  runID,
		Status: types.SuiteStatusPass,
	}

	for _, phase := range o.catalog.Phases() {
		phaseResult, abort, err := o.runPhase(ctx, phase)
		if err != nil {
			// Unusable toolchain state is fatal; make sure none of it
			// stays active before bailing out.
			if resetErr := o.provisioner.Reset(ctx); resetErr != nil {
				o.config.Log.Error("Failed to reset toolchain after abort", "error", resetErr)
			}
			return err
		}

		result.Phases = append(result.Phases, phaseResult)
		for _, res := range phaseResult.Results {
			result.record(res)
		}
		if phaseResult.Status == types.SuiteStatusFail {
			result.Status = types.SuiteStatusFail
		}

		if abort {
			o.config.Log.Error("Aborting pipeline, skipping remaining phases", "phase", phase.ID)
			result.Aborted = true
			if resetErr := o.provisioner.Reset(ctx); resetErr != nil {
				o.config.Log.Error("Failed to reset toolchain after abort", "error", resetErr)
			}
			break
		}
	}

	if !result.Aborted {
		if resetErr := o.provisioner.Reset(ctx); resetErr != nil {
			o.config.Log.Warn("Failed to reset toolchain after final phase", "error", resetErr)
		}
		o.aggregateAndUpload(ctx, result)
	}

	result.Duration = time.Since(start)
	o.resultMu.Lock()
	o.result = result
	o.resultMu.Unlock()

	summary, err := o.formatter.FormatResults(result)
	if err != nil {
		o.config.Log.Error("Failed to format results", "error", err)
	}
	fmt.Println(result.String())

	if err := fileLogger.WriteSummary(summary + "\n" + result.String() + "\n"); err != nil {
		o.config.Log.Error("Failed to persist run summary", "error", err)
	}

	o.reporter.ReportResults(runID, result)
	o.config.Log.Info("Pipeline run completed", "run_id", runID, "status", result.Status)
	return nil
}

// runPhase executes one phase of the catalog table. The second return value
// requests a pipeline abort (strict failure); the error return is reserved
// for fatal runtime conditions such as an unusable toolchain profile.
func (o *Orchestrator) runPhase(ctx context.Context, phase types.Phase) (*PhaseResult, bool, error) {
	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("phase %s", phase.ID))
	defer span.End()

	start := time.Now()
	phaseResult := &PhaseResult{
		ID:          phase.ID,
		Description: phase.Description,
		Lint:        phase.Lint,
		Status:      types.SuiteStatusPass,
	}

	o.config.Log.Info("Starting phase", "phase", phase.ID, "description", phase.Description)

	if phase.Lint {
		if err := o.linter.Run(ctx); err != nil {
			o.config.Log.Error("Lint failed", "error", err)
			phaseResult.Status = types.SuiteStatusFail
			phaseResult.Duration = time.Since(start)
			return phaseResult, true, nil
		}
		o.config.Log.Info("Lint passed")
		phaseResult.Duration = time.Since(start)
		return phaseResult, false, nil
	}

	// Unload-then-load: the previous phase's toolchain is fully replaced
	// before any suite of this phase runs.
	if err := o.provisioner.ApplyProfile(ctx, phase.Profile); err != nil {
		return nil, false, fmt.Errorf("provisioning phase %s: %w", phase.ID, err)
	}

	abort := false
	for _, entry := range phase.Entries {
		res := o.runner.Run(ctx, phase.ID, entry)
		phaseResult.Results = append(phaseResult.Results, res)

		if res.Blocking() {
			phaseResult.Status = types.SuiteStatusFail
			abort = true
			break
		}
	}

	phaseResult.Duration = time.Since(start)
	return phaseResult, abort, nil
}

// aggregateAndUpload runs the best-effort reporting tail of the pipeline.
// Failures here are logged and counted but never change the run status.
func (o *Orchestrator) aggregateAndUpload(ctx context.Context, result *PipelineResult) {
	report, err := o.aggregator.Aggregate(ctx, o.config.CoverageDir)
	if err != nil {
		o.config.Log.Warn("Coverage aggregation failed", "error", err)
		metrics.RecordErrorDetails("coverage aggregation failed", err)
		return
	}
	result.Report = report

	if o.uploader == nil {
		o.config.Log.Debug("No uploader configured, keeping report local", "tracefile", report.Tracefile)
		return
	}
	if err := o.uploader.Upload(ctx, report.Tracefile); err != nil {
		o.config.Log.Warn("Coverage upload failed", "error", err)
		metrics.RecordErrorDetails("coverage upload failed", err)
	}
}

// Stop stops the sim-ci service.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.config.Log.Info("Stopping sim-ci")

	if !o.running.Load() {
		o.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new pipeline runs
	o.running.Store(false)

	o.config.Log.Debug("Sending done signal to goroutines")
	close(o.done)

	o.config.Log.Info("sim-ci stopped successfully")
	return nil
}

// Stopped returns true if the sim-ci service is stopped.
func (o *Orchestrator) Stopped() bool {
	return !o.running.Load()
}

// Result returns the most recent pipeline result. Safe to call while a
// periodic run is in flight.
func (o *Orchestrator) Result() *PipelineResult {
	o.resultMu.Lock()
	defer o.resultMu.Unlock()
	return o.result
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (o *Orchestrator) WaitForShutdown(ctx context.Context) error {
	o.config.Log.Debug("Waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.config.Log.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		o.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}

package runner

import (
	"context"
	"os/exec"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/helioslab/sim-ci/logging"
	"github.com/helioslab/sim-ci/types"
)

// recordingTracer captures span names without a tracer provider.
type recordingTracer struct {
	embedded.Tracer
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.spans = append(t.spans, name)
	return ctx, noop.Span{}
}

func TestNewSuiteRunnerValidation(t *testing.T) {
	tests := []struct {
		name      string
		runnerBin string
		workDir   string
		wantErr   string
	}{
		{
			name:      "valid inputs should succeed",
			runnerBin: "tst/regression/run_tests.py",
			workDir:   "/tmp/src",
		},
		{
			name:    "empty runner binary should return error",
			workDir: "/tmp/src",
			wantErr: "runner binary is required",
		},
		{
			name:      "empty work directory should return error",
			runnerBin: "tst/regression/run_tests.py",
			wantErr:   "work directory is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSuiteRunner(Config{
				RunnerBin: tt.runnerBin,
				WorkDir:   tt.workDir,
				Log:       log.New(),
			})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name  string
		entry types.SuiteEntry
		want  []string
	}{
		{
			name:  "selectors only",
			entry: types.SuiteEntry{Name: "hydro", Selectors: []string{"hydro"}},
			want:  []string{"hydro"},
		},
		{
			name: "all options",
			entry: types.SuiteEntry{
				Name:        "mhd-coverage",
				Selectors:   []string{"mhd"},
				Config:      []string{"--cxx=icpc", "--cflag=-qno-ipo -fno-inline"},
				Coverage:    "lcov",
				MPIRun:      "mpirun",
				RunOverride: "time/nlim=20",
				Silent:      true,
			},
			want: []string{
				"mhd",
				"--config=--cxx=icpc",
				"--config=--cflag=-qno-ipo -fno-inline",
				"--coverage=lcov",
				"--mpirun=mpirun",
				"-r=time/nlim=20",
				"--silent",
			},
		},
		{
			name:  "multiple selectors come first",
			entry: types.SuiteEntry{Name: "io", Selectors: []string{"outputs", "pgen"}, Silent: true},
			want:  []string{"outputs", "pgen", "--silent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildArgs(tt.entry))
		})
	}
}

// fakeBuilder returns a command with the given exit behavior while
// recording the requested invocation.
type fakeBuilder struct {
	name string
	args []string
	fail bool
}

func (b *fakeBuilder) build(ctx context.Context, name string, arg ...string) *exec.Cmd {
	b.name = name
	b.args = arg
	if b.fail {
		return exec.CommandContext(ctx, "false")
	}
	return exec.CommandContext(ctx, "true")
}

func newTestRunner(t *testing.T, builder *fakeBuilder, fl *logging.FileLogger) *SuiteRunner {
	t.Helper()
	r, err := NewSuiteRunner(Config{
		RunnerBin:  "run_tests.py",
		WorkDir:    t.TempDir(),
		Log:        log.New(),
		CmdBuilder: builder.build,
		FileLogger: fl,
	})
	require.NoError(t, err)
	return r
}

func TestRunPassingSuite(t *testing.T) {
	builder := &fakeBuilder{}
	r := newTestRunner(t, builder, nil)

	entry := types.SuiteEntry{Name: "hydro", Selectors: []string{"hydro"}, Silent: true}
	res := r.Run(context.Background(), types.PhaseGnuSerialIO, entry)

	assert.Equal(t, types.SuiteStatusPass, res.Status)
	assert.True(t, res.Passed())
	assert.NoError(t, res.Err)
	assert.Equal(t, "hydro", res.Name)
	assert.Equal(t, types.PhaseGnuSerialIO, res.Phase)
	assert.Greater(t, res.Duration.Nanoseconds(), int64(0))

	assert.Equal(t, "run_tests.py", builder.name)
	assert.Equal(t, []string{"hydro", "--silent"}, builder.args)
}

func TestRunStrictFailure(t *testing.T) {
	builder := &fakeBuilder{fail: true}
	r := newTestRunner(t, builder, nil)

	entry := types.SuiteEntry{Name: "grav", Selectors: []string{"grav"}}
	res := r.Run(context.Background(), types.PhaseGnuSerialIO, entry)

	assert.Equal(t, types.SuiteStatusFail, res.Status)
	assert.False(t, res.Tolerated)
	assert.True(t, res.Blocking())
	assert.Equal(t, 1, res.ExitCode)

	require.Error(t, res.Err)
	assert.True(t, IsSuiteError(res.Err))
	assert.Contains(t, res.Err.Error(), "grav")
}

func TestRunTolerantFailure(t *testing.T) {
	builder := &fakeBuilder{fail: true}
	r := newTestRunner(t, builder, nil)

	entry := types.SuiteEntry{
		Name:        "mhd-coverage",
		Selectors:   []string{"mhd"},
		Coverage:    "lcov",
		RunOverride: "time/nlim=20",
		Tolerant:    true,
	}
	res := r.Run(context.Background(), types.PhaseGnuSerialIO, entry)

	assert.Equal(t, types.SuiteStatusFail, res.Status)
	assert.True(t, res.Tolerated)
	assert.False(t, res.Blocking())
	assert.NoError(t, res.Err)
}

func TestRunStoresSuiteLog(t *testing.T) {
	fl, err := logging.NewFileLogger(t.TempDir(), "run-1")
	require.NoError(t, err)
	defer fl.Close()

	builder := &fakeBuilder{}
	r := newTestRunner(t, builder, fl)

	entry := types.SuiteEntry{Name: "hydro", Selectors: []string{"hydro"}}
	res := r.Run(context.Background(), types.PhaseGnuSerialIO, entry)

	require.NotEmpty(t, res.LogPath)
	assert.FileExists(t, res.LogPath)
}

func TestRunStartsSuiteSpan(t *testing.T) {
	tracer := &recordingTracer{}
	builder := &fakeBuilder{}
	r, err := NewSuiteRunner(Config{
		RunnerBin:  "run_tests.py",
		WorkDir:    t.TempDir(),
		Log:        log.New(),
		CmdBuilder: builder.build,
		Tracer:     tracer,
	})
	require.NoError(t, err)

	r.Run(context.Background(), types.PhaseGnuSerialIO, types.SuiteEntry{Name: "mhd", Selectors: []string{"mhd"}})
	r.Run(context.Background(), types.PhaseIntelMPI, types.SuiteEntry{Name: "mpi", Selectors: []string{"mpi"}})

	assert.Equal(t, []string{"suite mhd", "suite mpi"}, tracer.spans)
}

func TestSetFileLogger(t *testing.T) {
	builder := &fakeBuilder{}
	r := newTestRunner(t, builder, nil)

	fl, err := logging.NewFileLogger(t.TempDir(), "run-2")
	require.NoError(t, err)
	defer fl.Close()
	r.SetFileLogger(fl)

	res := r.Run(context.Background(), types.PhaseIntelMPI, types.SuiteEntry{Name: "mpi", Selectors: []string{"mpi"}})
	assert.NotEmpty(t, res.LogPath)
}

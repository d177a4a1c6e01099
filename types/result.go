package types

import "time"

// SuiteStatus represents the outcome of one suite invocation.
type SuiteStatus string

const (
	SuiteStatusPass SuiteStatus = "pass"
	SuiteStatusFail SuiteStatus = "fail"
)

// ExecutionResult captures the outcome of a single suite runner invocation.
// It is produced by the suite runner and consumed by the pipeline driver
// (abort decision), the console formatter and the metrics reporter.
type ExecutionResult struct {
	Name     string
	Phase    PhaseID
	Status   SuiteStatus
	ExitCode int
	Duration time.Duration
	// Tolerated is set when the entry failed but was marked tolerant, so
	// the failure was recorded without aborting the pipeline.
	Tolerated bool
	// LogPath points at the captured runner output for this invocation.
	LogPath string
	Err     error
}

// Passed reports whether the invocation succeeded.
func (r *ExecutionResult) Passed() bool {
	return r.Status == SuiteStatusPass
}

// Blocking reports whether this result must abort the pipeline: a failure
// on an entry that was not marked tolerant.
func (r *ExecutionResult) Blocking() bool {
	return r.Status == SuiteStatusFail && !r.Tolerated
}

// Package exitcodes defines the standard exit codes used by sim-ci.
package exitcodes

// Exit code constants used by sim-ci
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when lint and all strict suite runs pass
// * SuiteFailure (1): Used when lint or a strict (non-tolerant) suite fails
// * RuntimeErr (2): Used for runtime errors such as bad configuration or a
//   toolchain profile that cannot be provisioned
//
// Coverage aggregation and report upload failures never change the exit code.
const (
	Success      = 0 // Lint and all strict suites pass
	SuiteFailure = 1 // Lint or strict suite failures
	RuntimeErr   = 2 // Runtime or environment errors
)

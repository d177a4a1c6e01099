package simci

import (
	"fmt"
	"time"

	"github.com/helioslab/sim-ci/coverage"
	"github.com/helioslab/sim-ci/types"
)

// PhaseResult aggregates the suite results of one pipeline phase.
type PhaseResult struct {
	ID          types.PhaseID
	Description string
	Lint        bool
	Status      types.SuiteStatus
	Duration    time.Duration
	Results     []*types.ExecutionResult
}

// PipelineStats tracks suite counts across the whole run.
type PipelineStats struct {
	Total     int
	Passed    int
	Failed    int
	Tolerated int
}

// PipelineResult captures the complete pipeline run outcome. Status reflects
// lint and strict suites only; tolerated failures and coverage/upload
// problems never flip it.
type PipelineResult struct {
	RunID    string
	Phases   []*PhaseResult
	Status   types.SuiteStatus
	Aborted  bool
	Duration time.Duration
	Stats    PipelineStats
	// Report is set when coverage aggregation produced a consolidated
	// report; nil when the run aborted or aggregation failed.
	Report *coverage.ConsolidatedReport
}

// String returns a single-line human readable summary of the run.
func (r *PipelineResult) String() string {
	s := fmt.Sprintf("Pipeline %s: %s (%d suites, %d passed, %d failed, %d tolerated) in %.1fs",
		r.RunID, r.Status, r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Tolerated, r.Duration.Seconds())
	if r.Aborted {
		s += " [aborted]"
	}
	if r.Report != nil {
		s += fmt.Sprintf(", coverage report at %s", r.Report.HTMLDir)
	}
	return s
}

// record folds one suite result into the run statistics.
func (r *PipelineResult) record(res *types.ExecutionResult) {
	r.Stats.Total++
	if res.Passed() {
		r.Stats.Passed++
	} else {
		r.Stats.Failed++
		if res.Tolerated {
			r.Stats.Tolerated++
		}
	}
}

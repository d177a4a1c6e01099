package simci

import (
	"github.com/helioslab/sim-ci/metrics"
)

// MetricsReporter is responsible for reporting metrics from pipeline results.
type MetricsReporter interface {
	ReportResults(runID string, result *PipelineResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the pipeline results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(runID string, result *PipelineResult) {
	for _, phase := range result.Phases {
		metrics.RecordPhaseDuration(runID, phase.ID, phase.Duration)
		for _, res := range phase.Results {
			metrics.RecordSuiteResult(runID, res.Phase, res.Name, res.Status, res.Tolerated)
		}
	}

	metrics.RecordPipeline(
		runID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Duration,
	)
}

package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/helioslab/sim-ci/types"
)

const (
	MetricsNamespace = "simci"
)

var (
	Debug                bool = true
	validResults              = []types.SuiteStatus{types.SuiteStatusPass, types.SuiteStatusFail}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	suiteResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results_total",
		Help:      "Count of suite invocations by result",
	}, []string{
		"run_id",
		"phase",
		"suite",
		"result",
		"tolerated",
	})

	phaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of pipeline phases",
	}, []string{
		"run_id",
		"phase",
	})

	pipelineResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_results",
		Help:      "Result of pipeline runs",
	}, []string{
		"run_id",
		"result",
	})

	pipelineSuitesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_suites_total",
		Help:      "Total number of suite invocations in a run",
	}, []string{
		"run_id",
	})

	pipelineSuitesPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_suites_passed",
		Help:      "Number of passed suite invocations in a run",
	}, []string{
		"run_id",
	})

	pipelineSuitesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_suites_failed",
		Help:      "Number of failed suite invocations in a run",
	}, []string{
		"run_id",
	})

	pipelineDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of pipeline runs",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordSuiteResult records one suite invocation outcome.
func RecordSuiteResult(runID string, phase types.PhaseID, suite string, result types.SuiteStatus, tolerated bool) {
	if !isValidResult(result) {
		log.Error("RecordSuiteResult - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "suite_results_total",
			"run_id", runID,
			"phase", phase,
			"suite", suite,
			"result", result,
			"tolerated", tolerated)
	}
	suiteResultsTotal.WithLabelValues(runID, string(phase), suite, string(result), fmt.Sprintf("%t", tolerated)).Inc()
}

// RecordPhaseDuration records how long one phase took.
func RecordPhaseDuration(runID string, phase types.PhaseID, duration time.Duration) {
	phaseDuration.WithLabelValues(runID, string(phase)).Set(duration.Seconds())
}

// RecordPipeline records the overall outcome of a pipeline run.
func RecordPipeline(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	pipelineResults.WithLabelValues(runID, result).Set(1)
	pipelineSuitesTotal.WithLabelValues(runID).Add(float64(total))
	pipelineSuitesPassed.WithLabelValues(runID).Add(float64(passed))
	pipelineSuitesFailed.WithLabelValues(runID).Add(float64(failed))
	pipelineDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.SuiteStatus) bool {
	return slices.Contains(validResults, result)
}

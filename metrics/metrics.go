// Package metrics exposes prometheus counters and gauges for the benchmark
// loop.
package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const (
	MetricsNamespace = "fsload"

	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of test executions",
	}, []string{
		"setup_id",
		"test_name",
		"result",
	})

	testDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of the most recent execution of each test",
	}, []string{
		"setup_id",
		"test_name",
	})

	iterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "iterations_total",
		Help:      "Count of completed loop iterations",
	})

	iterationDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "iteration_duration_seconds",
		Help:      "Duration of the most recent loop iteration",
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
		log.Debug().
			Str("m", "errors_total").
			Str("error", error).
			Msg("metric inc")
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

// RecordTest records one test execution outcome.
func RecordTest(setupID, testName string, success bool, duration time.Duration) {
	result := resultFailure
	if success {
		result = resultSuccess
	}
	if Debug {
		log.Debug().
			Str("m", "tests_total").
			Str("setup_id", setupID).
			Str("test_name", testName).
			Str("result", result).
			Msg("metric inc")
	}
	testsTotal.WithLabelValues(setupID, testName, result).Inc()
	testDuration.WithLabelValues(setupID, testName).Set(duration.Seconds())
}

// RecordIteration records one completed pass over the enabled test set.
func RecordIteration(duration time.Duration) {
	iterationsTotal.Inc()
	iterationDuration.Set(duration.Seconds())
}

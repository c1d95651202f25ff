package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	accessPlanner = "access_planner"

	// Evaluation metrics
	evaluationsTotal          = "evaluations_total"
	evaluationDuration        = "evaluation_duration_seconds"
	evaluationsInFlight       = "evaluations_in_flight"
	evaluationUnitFailures    = "evaluation_unit_failures_total"
	evaluationImagesProcessed = "evaluation_images_processed_total"

	// Labels
	statusLabel = "status"
	stageLabel  = "stage"
)

/**
* Metrics definition
**/
var evaluationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: accessPlanner,
		Name:      evaluationsTotal,
		Help:      "number of evaluations which reached a terminal status",
	},
	[]string{statusLabel},
)

var evaluationDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: accessPlanner,
		Name:      evaluationDuration,
		Help:      "time spent running an evaluation pipeline",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	},
	[]string{statusLabel},
)

var evaluationsInFlightMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: accessPlanner,
		Name:      evaluationsInFlight,
		Help:      "number of evaluation pipelines currently running",
	},
)

var evaluationUnitFailuresMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: accessPlanner,
		Name:      evaluationUnitFailures,
		Help:      "number of contained failures (image fetch, analyzer batch, geo check) by stage",
	},
	[]string{stageLabel},
)

var evaluationImagesProcessedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: accessPlanner,
		Name:      evaluationImagesProcessed,
		Help:      "number of images which produced a result",
	},
)

func ObserveEvaluationFinished(status string, elapsed time.Duration) {
	labels := prometheus.Labels{statusLabel: status}
	evaluationsTotalMetric.With(labels).Inc()
	evaluationDurationMetric.With(labels).Observe(elapsed.Seconds())
}

func IncreaseEvaluationsInFlight() {
	evaluationsInFlightMetric.Inc()
}

func DecreaseEvaluationsInFlight() {
	evaluationsInFlightMetric.Dec()
}

func IncreaseUnitFailures(stage string) {
	evaluationUnitFailuresMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

func AddImagesProcessed(count int) {
	evaluationImagesProcessedMetric.Add(float64(count))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(evaluationsTotalMetric)
	prometheus.MustRegister(evaluationDurationMetric)
	prometheus.MustRegister(evaluationsInFlightMetric)
	prometheus.MustRegister(evaluationUnitFailuresMetric)
	prometheus.MustRegister(evaluationImagesProcessedMetric)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// Model metrics
var (
	InferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_inference_total",
			Help: "Model inference calls by task and outcome",
		},
		[]string{"task", "status"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_inference_duration_seconds",
			Help:    "Duration of model inference calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	TrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_total",
			Help: "Model training attempts by task and outcome",
		},
		[]string{"task", "status"},
	)

	// FallbacksTotal counts heuristic fallbacks taken instead of a model prediction.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_fallbacks_total",
			Help: "Heuristic fallbacks used when a model was unavailable",
		},
		[]string{"task"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordDBQuery records a database query execution
func RecordDBQuery(query string, duration time.Duration, err error) {
	DBQueriesTotal.WithLabelValues(query, status(err)).Inc()
	DBQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

func RecordInference(task string, duration time.Duration, err error) {
	InferenceTotal.WithLabelValues(task, status(err)).Inc()
	InferenceDuration.WithLabelValues(task).Observe(duration.Seconds())
}

func RecordTraining(task string, err error) {
	TrainingTotal.WithLabelValues(task, status(err)).Inc()
}

func RecordFallback(task string) {
	FallbacksTotal.WithLabelValues(task).Inc()
}

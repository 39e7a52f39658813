// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_pipeline"

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Recording session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionOutcomes *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	ArtifactBytes   prometheus.Histogram

	// Transcription attempt metrics
	AttemptsTotal   prometheus.Counter
	AttemptOutcomes *prometheus.CounterVec
	ManualRetries   prometheus.Counter
	ProcessingTime  prometheus.Histogram

	// Provider call metrics
	ProviderCalls       *prometheus.CounterVec
	ProviderCallLatency prometheus.Histogram
	AutomaticRetries    prometheus.Counter

	// Store metrics
	SweepDeletions prometheus.Counter
	SweepErrors    prometheus.Counter

	// Event publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active recording sessions",
		}),
		SessionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_outcomes_total",
			Help:      "Recording session terminal outcomes",
		}, []string{"outcome"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Measured duration of completed recording sessions",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}),
		ArtifactBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Byte size of completed audio artifacts",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),

		AttemptsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of transcription attempts submitted",
		}),
		AttemptOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_outcomes_total",
			Help:      "Transcription attempt terminal outcomes",
		}, []string{"outcome", "code"}),
		ManualRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_retries_total",
			Help:      "Total number of user-triggered transcription retries",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_time_seconds",
			Help:      "End-to-end transcription processing time",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}),

		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Recognition provider calls by result status",
		}, []string{"status"}),
		ProviderCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_latency_seconds",
			Help:      "Latency of individual recognition provider calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}),
		AutomaticRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automatic_retries_total",
			Help:      "Total number of automatic provider-call retries",
		}),

		SweepDeletions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_deletions_total",
			Help:      "Total number of artifacts deleted by store sweeps",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Total number of per-file errors encountered by store sweeps",
		}),

		PublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total number of result events published",
		}, []string{"topic", "eventType"}),
		PublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total number of result event publish failures",
		}, []string{"topic", "eventType"}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Latency of result event publishes",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic"}),
	}
}

// RecordSessionOutcome records a terminal recording-session outcome.
func (m *Metrics) RecordSessionOutcome(outcome string) {
	m.SessionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAttemptOutcome records a terminal transcription-attempt outcome.
func (m *Metrics) RecordAttemptOutcome(outcome, code string) {
	m.AttemptOutcomes.WithLabelValues(outcome, code).Inc()
}

// RecordProviderCall records one provider call with its result status.
func (m *Metrics) RecordProviderCall(status string, elapsed time.Duration) {
	m.ProviderCalls.WithLabelValues(status).Inc()
	m.ProviderCallLatency.Observe(elapsed.Seconds())
}

// RecordPublish records a result event publish.
func (m *Metrics) RecordPublish(topic, eventType string, err error, seconds float64) {
	m.PublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.PublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.PublishLatency.WithLabelValues(topic).Observe(seconds)
}

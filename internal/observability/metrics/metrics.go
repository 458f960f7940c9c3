// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subtitlesforall"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsSuccess prometheus.Counter
	SessionsFailed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Step metrics
	StepsTotal      *prometheus.CounterVec
	StepDuration    prometheus.Histogram
	DecodeFailures  *prometheus.CounterVec
	DegradedWindows prometheus.Counter

	// Token and segment metrics
	TokensCommitted   prometheus.Counter
	TokensSpeculative prometheus.Counter
	SegmentsEmitted   prometheus.Counter

	// Audio metrics
	AudioSamplesReceived prometheus.Counter
	AudioBytesReceived   prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Backpressure metrics
	SessionLimitExceeded *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of transcription sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active transcription sessions",
		}),
		SessionsSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_success_total",
			Help:      "Total number of successfully finalized sessions",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of failed sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of transcription sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Step metrics
		StepsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_steps_total",
			Help:      "Total number of step loop iterations by outcome",
		}, []string{"status"}),
		StepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_step_duration_seconds",
			Help:      "Wall-clock duration of decode steps in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Total number of transient decode failures by kind",
		}, []string{"kind"}),
		DegradedWindows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_windows_total",
			Help:      "Total number of windows truncated due to audio overrun",
		}),

		// Token and segment metrics
		TokensCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_committed_total",
			Help:      "Total number of tokens committed as final",
		}),
		TokensSpeculative: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_speculative_total",
			Help:      "Total number of tokens held back as speculative",
		}),
		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of finalized segments emitted",
		}),

		// Audio metrics
		AudioSamplesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_samples_received_total",
			Help:      "Total PCM samples inserted into streaming contexts",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received from clients",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// Backpressure metrics
		SessionLimitExceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_limit_exceeded_total",
			Help:      "Total number of times session limits were exceeded",
		}, []string{"limit_type"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(success bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if success {
		m.SessionsSuccess.Inc()
	} else {
		m.SessionsFailed.Inc()
	}
}

// RecordStep records a step loop iteration and its outcome.
func (m *Metrics) RecordStep(status string, durationSeconds float64) {
	m.StepsTotal.WithLabelValues(status).Inc()
	m.StepDuration.Observe(durationSeconds)
}

// RecordDecodeFailure records a transient decode failure.
func (m *Metrics) RecordDecodeFailure(kind string) {
	m.DecodeFailures.WithLabelValues(kind).Inc()
}

// RecordDegradedWindow records a window truncated by audio overrun.
func (m *Metrics) RecordDegradedWindow() {
	m.DegradedWindows.Inc()
}

// RecordCommit records the commit split of one decode step.
func (m *Metrics) RecordCommit(committed, speculative int) {
	m.TokensCommitted.Add(float64(committed))
	m.TokensSpeculative.Add(float64(speculative))
}

// RecordSegmentEmitted records a finalized segment.
func (m *Metrics) RecordSegmentEmitted() {
	m.SegmentsEmitted.Inc()
}

// RecordAudioSamples records PCM samples inserted into a context.
func (m *Metrics) RecordAudioSamples(n int) {
	m.AudioSamplesReceived.Add(float64(n))
}

// RecordAudioBytes records raw audio bytes received from a client.
func (m *Metrics) RecordAudioBytes(n int) {
	m.AudioBytesReceived.Add(float64(n))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordLimitExceeded records when a session limit is exceeded.
func (m *Metrics) RecordLimitExceeded(limitType string) {
	m.SessionLimitExceeded.WithLabelValues(limitType).Inc()
}

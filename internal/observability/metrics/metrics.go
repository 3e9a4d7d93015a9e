// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "podcast_voice"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Command metrics
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CommandHistory    prometheus.Gauge
	ServerProcessing  *prometheus.CounterVec
	UnrecognizedTotal prometheus.Counter

	// Transcript metrics
	TranscriptsLoaded *prometheus.CounterVec
	SegmentsSkipped   *prometheus.CounterVec
	TranscriptQueries *prometheus.CounterVec

	// Session metrics
	SessionsActive     prometheus.Gauge
	SessionTransitions *prometheus.CounterVec
	SessionErrors      *prometheus.CounterVec
	ResponseTimeouts   prometheus.Counter

	// API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of executed voice commands",
		}, []string{"intent", "outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Voice command execution latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 3},
		}, []string{"intent"}),
		CommandHistory: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_history_size",
			Help:      "Number of records in the command history",
		}),
		ServerProcessing: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_processing_total",
			Help:      "Total number of commands handed to server-side processing",
		}, []string{"intent"}),
		UnrecognizedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_unrecognized_total",
			Help:      "Total number of utterances no rule matched",
		}),

		TranscriptsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_loaded_total",
			Help:      "Total number of transcripts parsed and stored",
		}, []string{"format"}),
		SegmentsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_segments_skipped_total",
			Help:      "Total number of malformed transcript blocks skipped",
		}, []string{"format"}),
		TranscriptQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_queries_total",
			Help:      "Total number of transcript queries",
		}, []string{"query"}),

		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_sessions_active",
			Help:      "Number of connected voice sessions",
		}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_session_transitions_total",
			Help:      "Total number of voice session state transitions",
		}, []string{"from", "to"}),
		SessionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_session_errors_total",
			Help:      "Total number of voice session errors",
		}, []string{"stage"}),
		ResponseTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_response_timeouts_total",
			Help:      "Total number of listens abandoned without a response",
		}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		}, []string{"api", "method", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api", "method"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordCommand records one executed command.
func (m *Metrics) RecordCommand(intent, outcome string, durationSeconds float64) {
	m.CommandsTotal.WithLabelValues(intent, outcome).Inc()
	m.CommandDuration.WithLabelValues(intent).Observe(durationSeconds)
}

// SetHistorySize records the current command history length.
func (m *Metrics) SetHistorySize(n int) {
	m.CommandHistory.Set(float64(n))
}

// RecordServerProcessing records a command handed to server-side processing.
func (m *Metrics) RecordServerProcessing(intent string) {
	m.ServerProcessing.WithLabelValues(intent).Inc()
}

// RecordUnrecognized records an utterance that resolved to the unknown intent.
func (m *Metrics) RecordUnrecognized() {
	m.UnrecognizedTotal.Inc()
}

// RecordTranscriptLoaded records a parsed transcript and its skipped blocks.
func (m *Metrics) RecordTranscriptLoaded(format string, skipped int) {
	m.TranscriptsLoaded.WithLabelValues(format).Inc()
	if skipped > 0 {
		m.SegmentsSkipped.WithLabelValues(format).Add(float64(skipped))
	}
}

// RecordTranscriptQuery records a transcript query by kind.
func (m *Metrics) RecordTranscriptQuery(query string) {
	m.TranscriptQueries.WithLabelValues(query).Inc()
}

// RecordSessionTransition records a voice session state change.
func (m *Metrics) RecordSessionTransition(from, to string) {
	m.SessionTransitions.WithLabelValues(from, to).Inc()
}

// RecordSessionError records a voice session failure at the given stage.
func (m *Metrics) RecordSessionError(stage string) {
	m.SessionErrors.WithLabelValues(stage).Inc()
}

// RecordResponseTimeout records an abandoned listen.
func (m *Metrics) RecordResponseTimeout() {
	m.ResponseTimeouts.Inc()
}

// RecordRequest records one gRPC or HTTP request.
func (m *Metrics) RecordRequest(api, method, code string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(api, method, code).Inc()
	m.RequestDuration.WithLabelValues(api, method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

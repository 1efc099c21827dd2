package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookwise_chat_requests_total",
			Help: "Total number of chat pipeline requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	chatGenerationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookwise_chat_generation_latency_ms",
			Help:    "Latency of text-generation provider calls in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		},
	)
	chatPipelineDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookwise_chat_pipeline_duration_ms",
			Help:    "End-to-end chat pipeline duration in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	chatRejectedMutationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookwise_chat_rejected_mutations_total",
			Help: "Total number of mutation attempts rejected in read-only mode.",
		},
	)
	auditRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookwise_audit_records_total",
			Help: "Total number of chat audit records written.",
		},
	)
	auditArchivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookwise_audit_archived_total",
			Help: "Total number of chat audit records archived to object storage.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		chatGenerationLatencyMs,
		chatPipelineDurationMs,
		chatRejectedMutationsTotal,
		auditRecordsTotal,
		auditArchivedTotal,
	)
}

func ObserveChatRequest(mode, outcome string, elapsed time.Duration) {
	chatRequestsTotal.WithLabelValues(mode, outcome).Inc()
	chatPipelineDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveGenerationLatency(elapsed time.Duration) {
	chatGenerationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementRejectedMutation() {
	chatRejectedMutationsTotal.Inc()
}

func IncrementAuditRecords() {
	auditRecordsTotal.Inc()
}

func AddAuditArchived(count int) {
	if count > 0 {
		auditArchivedTotal.Add(float64(count))
	}
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	activitiesRecordedTotal *prometheus.CounterVec
	suspiciousOpenedTotal   *prometheus.CounterVec
	riskEvaluationFailures  prometheus.Counter
	banOperationsTotal      *prometheus.CounterVec
	auditDroppedTotal       prometheus.Counter
	auditFailuresTotal      prometheus.Counter
	moderationEventsTotal   *prometheus.CounterVec
	alertClientsActive      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the moderation API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guard_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		activitiesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_activities_recorded_total",
			Help: "Activity records appended to the log.",
		}, []string{"activity_type", "risk_level"})

		suspiciousOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_suspicious_cases_opened_total",
			Help: "Suspicious activity cases opened by the risk evaluator.",
		}, []string{"pattern"})

		riskEvaluationFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guard_risk_evaluation_failures_total",
			Help: "Risk evaluation stages that failed after the activity was stored.",
		})

		banOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_ban_operations_total",
			Help: "Ban registry mutations by outcome.",
		}, []string{"operation"})

		auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guard_audit_trail_dropped_total",
			Help: "Audit entries dropped because the queue was full or closed.",
		})

		auditFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guard_audit_trail_failures_total",
			Help: "Audit entries that could not be written after retries.",
		})

		moderationEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_moderation_events_total",
			Help: "Moderation events delivered to local subscribers.",
		}, []string{"type"})

		alertClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guard_alert_clients_active",
			Help: "Connected moderation alert websocket clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			activitiesRecordedTotal,
			suspiciousOpenedTotal,
			riskEvaluationFailures,
			banOperationsTotal,
			auditDroppedTotal,
			auditFailuresTotal,
			moderationEventsTotal,
			alertClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ActivitiesRecorded exposes the activity append counter.
func ActivitiesRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return activitiesRecordedTotal
}

// SuspiciousCasesOpened exposes the case counter by pattern.
func SuspiciousCasesOpened() *prometheus.CounterVec {
	RegisterMetrics()
	return suspiciousOpenedTotal
}

// RiskEvaluationFailures exposes the evaluator failure counter.
func RiskEvaluationFailures() prometheus.Counter {
	RegisterMetrics()
	return riskEvaluationFailures
}

// BanOperations exposes the ban registry counter.
func BanOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return banOperationsTotal
}

// AuditDropped exposes the audit queue drop counter.
func AuditDropped() prometheus.Counter {
	RegisterMetrics()
	return auditDroppedTotal
}

// AuditFailures exposes the audit write failure counter.
func AuditFailures() prometheus.Counter {
	RegisterMetrics()
	return auditFailuresTotal
}

// ModerationEvents exposes the moderation event counter.
func ModerationEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return moderationEventsTotal
}

// AlertClientsActive exposes the websocket client gauge.
func AlertClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return alertClientsActive
}

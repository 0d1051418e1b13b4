package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "omnisync"

// BusinessMetrics holds the Prometheus collectors scraped at /metrics. Each
// instance owns its registry so tests can build as many as they need.
type BusinessMetrics struct {
	registry *prometheus.Registry

	inventoryAdjustments *prometheus.CounterVec
	webhookEvents        *prometheus.CounterVec
	syncJobs             *prometheus.CounterVec
	lockAcquires         *prometheus.CounterVec
	notifications        *prometheus.CounterVec
	adapterLatency       *prometheus.HistogramVec
}

// NewBusinessMetrics registers all collectors plus the Go runtime and
// process collectors.
func NewBusinessMetrics() *BusinessMetrics {
	m := &BusinessMetrics{
		registry: prometheus.NewRegistry(),
		inventoryAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inventory_adjustments_total",
			Help:      "Inventory ledger adjustments written, by reason",
		}, []string{"reason"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events by source and final state",
		}, []string{"source", "state"}),
		syncJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_jobs_total",
			Help:      "Sync job executions by type and resulting status",
		}, []string{"type", "status"}),
		lockAcquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lock_acquire_total",
			Help:      "Lock acquire attempts by outcome",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifier_events_total",
			Help:      "Notifications by type and delivery outcome",
		}, []string{"type", "outcome"}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "adapter_request_duration_seconds",
			Help:      "Outbound marketplace call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inventoryAdjustments,
		m.webhookEvents,
		m.syncJobs,
		m.lockAcquires,
		m.notifications,
		m.adapterLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *BusinessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *BusinessMetrics) RecordInventoryAdjustment(reason string) {
	m.inventoryAdjustments.WithLabelValues(reason).Inc()
}

func (m *BusinessMetrics) RecordWebhookEvent(source, state string) {
	m.webhookEvents.WithLabelValues(source, state).Inc()
}

func (m *BusinessMetrics) RecordSyncJob(jobType, status string) {
	m.syncJobs.WithLabelValues(jobType, status).Inc()
}

// RecordLockAcquire satisfies lock.MetricsRecorder
func (m *BusinessMetrics) RecordLockAcquire(outcome string) {
	m.lockAcquires.WithLabelValues(outcome).Inc()
}

func (m *BusinessMetrics) RecordNotification(notificationType, outcome string) {
	m.notifications.WithLabelValues(notificationType, outcome).Inc()
}

func (m *BusinessMetrics) ObserveAdapterCall(source, operation string, seconds float64) {
	m.adapterLatency.WithLabelValues(source, operation).Observe(seconds)
}

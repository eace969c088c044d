package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Registry is the Prometheus registry for all metrics
	Registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	wsActiveConnections prometheus.Gauge
	wsDroppedMessages   prometheus.Counter

	// Broker metrics
	brokerPublishFailures prometheus.Counter

	// Cache metrics
	cacheFallbacks prometheus.Counter

	// Scheduler metrics
	emailsDispatched *prometheus.CounterVec
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// NewMetrics creates and registers all Prometheus metrics.
// This is idempotent - calling multiple times returns the same instance.
func NewMetrics(serviceName string) *Metrics {
	globalMetricsOnce.Do(func() {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)

		m := &Metrics{
			Registry: registry,
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name:        "http_requests_total",
					Help:        "Total number of HTTP requests",
					ConstLabels: prometheus.Labels{"service": serviceName},
				},
				[]string{"method", "endpoint", "status"},
			),
			httpRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:        "http_request_duration_seconds",
					Help:        "HTTP request latency in seconds",
					ConstLabels: prometheus.Labels{"service": serviceName},
					Buckets:     prometheus.DefBuckets,
				},
				[]string{"method", "endpoint"},
			),
			wsActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
				Name:        "ws_active_connections",
				Help:        "Current number of open WebSocket connections",
				ConstLabels: prometheus.Labels{"service": serviceName},
			}),
			wsDroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
				Name:        "ws_dropped_messages_total",
				Help:        "Messages dropped because a client send buffer was full",
				ConstLabels: prometheus.Labels{"service": serviceName},
			}),
			brokerPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name:        "broker_publish_failures_total",
				Help:        "Broadcast publishes dropped due to broker errors",
				ConstLabels: prometheus.Labels{"service": serviceName},
			}),
			cacheFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
				Name:        "cache_fallback_total",
				Help:        "Cache calls served by the in-process fallback",
				ConstLabels: prometheus.Labels{"service": serviceName},
			}),
			emailsDispatched: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name:        "emails_dispatched_total",
					Help:        "Emails dispatched by background jobs",
					ConstLabels: prometheus.Labels{"service": serviceName},
				},
				[]string{"job"},
			),
		}

		registry.MustRegister(
			m.httpRequestsTotal,
			m.httpRequestDuration,
			m.wsActiveConnections,
			m.wsDroppedMessages,
			m.brokerPublishFailures,
			m.cacheFallbacks,
			m.emailsDispatched,
		)

		globalMetrics = m
	})
	return globalMetrics
}

// ObserveHTTPRequest records one finished HTTP request
func (m *Metrics) ObserveHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// WSConnectionOpened increments the active connection gauge
func (m *Metrics) WSConnectionOpened() {
	m.wsActiveConnections.Inc()
}

// WSConnectionClosed decrements the active connection gauge
func (m *Metrics) WSConnectionClosed() {
	m.wsActiveConnections.Dec()
}

// WSMessageDropped counts a message dropped on client buffer overflow
func (m *Metrics) WSMessageDropped() {
	m.wsDroppedMessages.Inc()
}

// BrokerPublishFailed counts a dropped broadcast publish
func (m *Metrics) BrokerPublishFailed() {
	m.brokerPublishFailures.Inc()
}

// CacheFallback counts a cache call served by the in-process fallback
func (m *Metrics) CacheFallback() {
	m.cacheFallbacks.Inc()
}

// EmailsDispatched counts emails sent by the named background job
func (m *Metrics) EmailsDispatched(job string, count int) {
	m.emailsDispatched.WithLabelValues(job).Add(float64(count))
}

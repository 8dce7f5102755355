// Package metrics exposes the Prometheus collectors for the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the application collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	wsConnections    prometheus.Gauge
	wsRooms          prometheus.Gauge
	eventsPublished  *prometheus.CounterVec
	subscribesDenied prometheus.Counter
	reconciliations  prometheus.Counter
}

// New creates and registers the gateway collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exchange_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exchange_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),

		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exchange_layer",
			Subsystem: "realtime",
			Name:      "open_connections",
			Help:      "Current number of authenticated socket connections.",
		}),
		wsRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "exchange_layer",
			Subsystem: "realtime",
			Name:      "rooms",
			Help:      "Current number of rooms with at least one member.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange_layer",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Total number of events published, by event name.",
		}, []string{"event"}),
		subscribesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange_layer",
			Subsystem: "realtime",
			Name:      "subscribes_denied_total",
			Help:      "Total number of room subscriptions denied by authorization.",
		}),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "exchange_layer",
			Subsystem: "realtime",
			Name:      "presence_reconciliations_total",
			Help:      "Total number of presence reconciliation passes after disconnects.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.wsConnections,
		m.wsRooms,
		m.eventsPublished,
		m.subscribesDenied,
		m.reconciliations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ConnectionOpened / ConnectionClosed track the live socket gauge.
func (m *Metrics) ConnectionOpened() { m.wsConnections.Inc() }
func (m *Metrics) ConnectionClosed() { m.wsConnections.Dec() }

// SetRoomCount records the current number of occupied rooms.
func (m *Metrics) SetRoomCount(n int) { m.wsRooms.Set(float64(n)) }

// EventPublished counts one broadcast of the named event.
func (m *Metrics) EventPublished(event string) { m.eventsPublished.WithLabelValues(event).Inc() }

// SubscribeDenied counts one refused room subscription.
func (m *Metrics) SubscribeDenied() { m.subscribesDenied.Inc() }

// ReconciliationRun counts one presence reconciliation pass.
func (m *Metrics) ReconciliationRun() { m.reconciliations.Inc() }

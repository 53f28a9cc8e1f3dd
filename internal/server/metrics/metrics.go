// Package metrics exposes the server's Prometheus instruments. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by RecordDelivery.
const (
	DeliveryDelivered = "delivered"
	DeliveryOffline   = "offline"
	DeliveryDropped   = "dropped"
)

type Metrics struct {
	onlineUsers    prometheus.Gauge
	connections    prometheus.Gauge
	deliveries     *prometheus.CounterVec
	broadcasts     prometheus.Counter
	broadcastDrops prometheus.Counter
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
}

// New creates the instruments and registers them with reg
// (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gophchat_online_users",
			Help: "Users currently joined to the presence registry.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gophchat_live_connections",
			Help: "Open live-channel connections.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophchat_deliveries_total",
			Help: "Live delivery attempts grouped by outcome.",
		}, []string{"outcome"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gophchat_presence_broadcasts_total",
			Help: "Online-set broadcasts sent after presence changes.",
		}),
		broadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gophchat_presence_broadcast_drops_total",
			Help: "Broadcast events dropped because a connection queue was full.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophchat_requests_total",
			Help: "Request API calls grouped by method and status code.",
		}, []string{"method", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gophchat_request_duration_seconds",
			Help:    "Latency of request API calls.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gophchat_rate_limited_total",
			Help: "Requests rejected by the rate limiter grouped by transport.",
		}, []string{"transport"}),
	}

	reg.MustRegister(
		m.onlineUsers,
		m.connections,
		m.deliveries,
		m.broadcasts,
		m.broadcastDrops,
		m.requests,
		m.requestLatency,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) SetOnlineUsers(n int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(n))
}

func (m *Metrics) IncConnections() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) DecConnections() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// RecordBroadcast counts one broadcast and the number of listeners that
// could not take it.
func (m *Metrics) RecordBroadcast(dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	if dropped > 0 {
		m.broadcastDrops.Add(float64(dropped))
	}
}

func (m *Metrics) ObserveRequest(method, code string, dur time.Duration) {
	if m == nil || method == "" {
		return
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.requestLatency.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *Metrics) RecordRateLimited(transport string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(transport).Inc()
}

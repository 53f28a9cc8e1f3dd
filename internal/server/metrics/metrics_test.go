package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetOnlineUsers(3)
	m.IncConnections()
	m.IncConnections()
	m.DecConnections()
	m.RecordDelivery(DeliveryDelivered)
	m.RecordDelivery(DeliveryOffline)
	m.RecordDelivery(DeliveryOffline)
	m.RecordBroadcast(0)
	m.RecordBroadcast(2)
	m.ObserveRequest("/gophchat.v1.ChatService/SendMessage", "OK", 10*time.Millisecond)
	m.RecordRateLimited("grpc")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.onlineUsers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(DeliveryDelivered)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues(DeliveryOffline)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcasts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcastDrops))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/gophchat.v1.ChatService/SendMessage", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("grpc")))

	n, err := testutil.GatherAndCount(reg, "gophchat_request_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetOnlineUsers(1)
		m.IncConnections()
		m.DecConnections()
		m.RecordDelivery(DeliveryDropped)
		m.RecordBroadcast(1)
		m.ObserveRequest("m", "OK", time.Second)
		m.RecordRateLimited("ws")
	})
}

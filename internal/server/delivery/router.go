// Package delivery forwards messages to the recipient's live connection.
package delivery

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/presence"
)

// Directory resolves a user to the connection they are reachable on.
type Directory interface {
	Lookup(userID int64) (presence.Conn, bool)
}

type Router struct {
	directory Directory
	logger    logging.Logger
	metrics   *metrics.Metrics
}

func NewRouter(d Directory, l logging.Logger, m *metrics.Metrics) *Router {
	return &Router{directory: d, logger: l.With("module", "delivery"), metrics: m}
}

// Route forwards one deliver event to receiverID's connection and reports
// whether it was enqueued. An offline receiver is a normal outcome, not an
// error.
func (r *Router) Route(senderID, receiverID int64, content string) bool {
	conn, ok := r.directory.Lookup(receiverID)
	if !ok {
		r.metrics.RecordDelivery(metrics.DeliveryOffline)
		return false
	}

	ev := presence.Event{
		Type:    presence.EventDeliver,
		Payload: presence.MessagePayload{SenderID: senderID, ReceiverID: receiverID, Content: content},
	}
	if !conn.Send(ev) {
		r.metrics.RecordDelivery(metrics.DeliveryDropped)
		r.logger.Warn(context.Background(), "deliver dropped, queue full", "receiver_id", receiverID, "handle", conn.Handle())
		return false
	}

	r.metrics.RecordDelivery(metrics.DeliveryDelivered)
	return true
}

package services

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Router attempts live delivery of a message.
type Router interface {
	Route(senderID, receiverID int64, content string) bool
}

// Messenger sends a message as one operation: it is stored first and then
// offered to the receiver's live connection. The two outcomes are reported
// separately; an offline receiver is not an error.
type Messenger struct {
	messages *MessageService
	router   Router
}

func NewMessenger(ms *MessageService, r Router) *Messenger {
	return &Messenger{messages: ms, router: r}
}

// Send persists the message and, on success, routes it. delivered is false
// when the receiver is offline or its queue was full.
func (m *Messenger) Send(ctx context.Context, senderID, receiverID int64, content string) (msg *models.Message, delivered bool, err error) {
	msg, err = m.messages.Append(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, false, err
	}
	return msg, m.router.Route(senderID, receiverID, content), nil
}

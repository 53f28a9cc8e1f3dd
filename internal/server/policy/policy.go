// Package policy holds the access rules for messages. All functions are pure.
package policy

import "github.com/dmitrijs2005/gophchat/internal/server/models"

// CanModify reports whether requesterID may edit or delete msg.
// Only the sender may.
func CanModify(msg *models.Message, requesterID int64) bool {
	return msg != nil && msg.SenderID == requesterID
}

// CanMessage reports whether sender may write to receiver.
func CanMessage(senderID, receiverID int64) bool {
	return senderID != receiverID
}

// IsParticipant reports whether userID is the sender or the receiver of msg.
func IsParticipant(msg *models.Message, userID int64) bool {
	return msg != nil && (msg.SenderID == userID || msg.ReceiverID == userID)
}

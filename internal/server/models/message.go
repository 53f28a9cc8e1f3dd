// Package models defines server-side data models persisted in the database.
package models

import "time"

// Message is one direct message between two distinct users.
//
// Soft-deleted messages keep their row: IsDeleted is set and DeletedAt records
// when. They are excluded from history and search but still returned by a
// lookup by id.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsDeleted  bool
	DeletedAt  *time.Time
}

// MessagePage is one window of a conversation listing.
type MessagePage struct {
	Messages    []*Message
	TotalPages  int
	CurrentPage int
}

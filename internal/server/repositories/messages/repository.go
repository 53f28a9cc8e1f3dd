// Package messages stores direct messages. Two implementations exist:
// PostgresRepository for production and MemoryRepository for tests and the
// in-memory storage backend.
package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Filter selects the non-deleted messages of one conversation.
//
// The conversation is the unordered pair {UserA, UserB}. Contains, when not
// empty, keeps messages whose content includes it case-insensitively. After
// and Before bound CreatedAt exclusively.
type Filter struct {
	UserA    int64
	UserB    int64
	Contains string
	After    *time.Time
	Before   *time.Time
}

// pair returns the participants in ascending order.
func (f Filter) pair() (int64, int64) {
	if f.UserA <= f.UserB {
		return f.UserA, f.UserB
	}
	return f.UserB, f.UserA
}

// Repository is the message store. Missing rows yield common.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	// Get returns the message by id, including soft-deleted ones.
	Get(ctx context.Context, id int64) (*models.Message, error)
	// GetForUpdate is Get that also locks the row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Message, error)
	UpdateContent(ctx context.Context, id int64, content string, at time.Time) (*models.Message, error)
	MarkDeleted(ctx context.Context, id int64, at time.Time) (*models.Message, error)
	List(ctx context.Context, f Filter, offset, limit int, order models.SortOrder) ([]*models.Message, error)
	Count(ctx context.Context, f Filter) (int, error)
}

// Package users stores registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Repository is the user store. Missing users yield common.ErrNotFound and a
// duplicate email yields common.ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// ListExcept returns every user but id, ordered by id.
	ListExcept(ctx context.Context, id int64) ([]*models.User, error)
}

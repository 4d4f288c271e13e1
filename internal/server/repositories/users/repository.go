// Package users implements the UserStore: accounts and their sealed message
// keys.
package users

import (
	"context"

	"github.com/dmitrijs2005/pinmail/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByName(ctx context.Context, userName string) (*models.User, error)
	// GetMessageKeys returns common.ErrorNotFound when the user is unknown.
	GetMessageKeys(ctx context.Context, userID string) (*models.MessageKeys, error)
	UpdateKeys(ctx context.Context, userID string, keys *models.MessageKeys) error
}

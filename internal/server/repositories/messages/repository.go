// Package messages implements the MessageStore. Lookups are always scoped to
// the recipient, so a foreign hash behaves exactly like a missing one.
package messages

import (
	"context"

	"github.com/dmitrijs2005/pinmail/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound for unknown, foreign or deleted messages.
	Get(ctx context.Context, ownerID, hash string) (*models.Message, error)
	// Inbox lists live messages of ownerID, newest first.
	Inbox(ctx context.Context, ownerID string) ([]*models.Message, error)
	// SetViewed reports whether the flag actually changed.
	SetViewed(ctx context.Context, id string) (bool, error)
	// Delete returns common.ErrorNotFound when nothing was deleted.
	Delete(ctx context.Context, ownerID, id string) error
	// DeleteAll returns the number of messages deleted.
	DeleteAll(ctx context.Context, ownerID string) (int64, error)
	Send(ctx context.Context, msg *models.Message) (*models.Message, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

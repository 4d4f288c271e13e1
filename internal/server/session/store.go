// Package session holds per-session state: a key-value Store for flash
// markers and the pending PIN redirect, and a process-local SecretCache for
// unlock passwords.
package session

import (
	"context"
	"errors"
)

var ErrStoreOperationFailed = errors.New("session store operation failed")

// Store is a small key-value store namespaced by session id. Take must be
// atomic: of two concurrent Take calls for the same key at most one sees
// the value.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Take(ctx context.Context, sessionID, key string) (string, bool, error)
	Delete(ctx context.Context, sessionID, key string) error
	// Destroy drops every key of the session.
	Destroy(ctx context.Context, sessionID string) error
}

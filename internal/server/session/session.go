package session

import (
	"context"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

const (
	flashPrefix = "flash:"
	// ended sessions are recorded under their own namespace so Destroy
	// does not drop the marker; it expires with the store TTL.
	endedPrefix = "ended:"
	endedKey    = "ended"
)

// Session is the capability handed to entry points for one authenticated
// session. It owns access to the cached unlock password, the pending PIN
// redirect target and the read-once flash markers.
type Session struct {
	ID     string
	UserID string

	store   Store
	secrets *SecretCache
}

// Manager opens Session values over a shared Store and SecretCache.
type Manager struct {
	store   Store
	secrets *SecretCache
}

func NewManager(store Store, secrets *SecretCache) *Manager {
	return &Manager{store: store, secrets: secrets}
}

func (m *Manager) Open(sessionID, userID string) *Session {
	return &Session{ID: sessionID, UserID: userID, store: m.store, secrets: m.secrets}
}

// Ended reports whether the session was logged out. Tokens stay valid
// until they expire, so the marker must outlive them.
func (m *Manager) Ended(ctx context.Context, sessionID string) (bool, error) {
	_, ok, err := m.store.Get(ctx, endedPrefix+sessionID, endedKey)
	return ok, err
}

// Secrets exposes the cache for event handlers.
func (m *Manager) Secrets() *SecretCache {
	return m.secrets
}

// UnlockPassword returns a copy the caller must wipe; ok is false when the
// PIN has not been entered in this session.
func (s *Session) UnlockPassword() ([]byte, bool) {
	return s.secrets.Get(s.ID, s.UserID)
}

func (s *Session) SetUnlockPassword(password []byte) {
	s.secrets.Set(s.ID, s.UserID, password)
}

func (s *Session) ClearUnlockPassword() {
	s.secrets.Clear(s.ID)
}

// Unlocked reports whether an unlock password is cached.
func (s *Session) Unlocked() bool {
	pw, ok := s.UnlockPassword()
	shared.WipeByteArray(pw)
	return ok
}

func (s *Session) SetPendingTarget(ctx context.Context, target string) error {
	return s.store.Set(ctx, s.ID, common.KeyBeforePin, target)
}

// TakePendingTarget reads and clears the remembered destination.
func (s *Session) TakePendingTarget(ctx context.Context) (string, bool, error) {
	return s.store.Take(ctx, s.ID, common.KeyBeforePin)
}

func (s *Session) SetFlash(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.ID, flashPrefix+key, value)
}

// TakeFlash is read-once: the first caller gets the value, later callers
// see it absent.
func (s *Session) TakeFlash(ctx context.Context, key string) (string, bool, error) {
	return s.store.Take(ctx, s.ID, flashPrefix+key)
}

// End locks the session, drops all of its state and marks it ended so
// its token is no longer accepted.
func (s *Session) End(ctx context.Context) error {
	s.ClearUnlockPassword()
	if err := s.store.Set(ctx, endedPrefix+s.ID, endedKey, "1"); err != nil {
		return err
	}
	return s.store.Destroy(ctx, s.ID)
}

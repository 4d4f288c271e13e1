package session

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore(time.Hour)
	return NewManager(store, NewSecretCache(16, time.Hour)), store
}

func TestSession_UnlockPassword(t *testing.T) {
	m, _ := newManager()
	s := m.Open("sess-1", "user-1")

	_, ok := s.UnlockPassword()
	assert.False(t, ok)
	assert.False(t, s.Unlocked())

	s.SetUnlockPassword([]byte("pw"))
	assert.True(t, s.Unlocked())

	// another request of the same session sees it
	pw, ok := m.Open("sess-1", "user-1").UnlockPassword()
	require.True(t, ok)
	assert.Equal(t, []byte("pw"), pw)

	s.ClearUnlockPassword()
	assert.False(t, s.Unlocked())
}

func TestSession_SecretNeverInStore(t *testing.T) {
	m, store := newManager()
	s := m.Open("sess-1", "user-1")
	s.SetUnlockPassword([]byte("pw"))
	require.NoError(t, s.SetFlash(context.Background(), common.FlashMessageDeleted, "true"))

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, v := range store.sessions["sess-1"].values {
		assert.NotEqual(t, "pw", v)
	}
}

func TestSession_PendingTarget(t *testing.T) {
	m, store := newManager()
	s := m.Open("sess-1", "user-1")
	ctx := context.Background()

	require.NoError(t, s.SetPendingTarget(ctx, "/message/read/h1"))

	v, ok, _ := store.Get(ctx, "sess-1", common.KeyBeforePin)
	require.True(t, ok)
	assert.Equal(t, "/message/read/h1", v)

	target, ok, err := s.TakePendingTarget(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/message/read/h1", target)

	_, ok, err = s.TakePendingTarget(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_FlashReadOnce(t *testing.T) {
	m, _ := newManager()
	s := m.Open("sess-1", "user-1")
	ctx := context.Background()

	require.NoError(t, s.SetFlash(ctx, common.FlashMessagesDeleted, "true"))

	v, ok, err := s.TakeFlash(ctx, common.FlashMessagesDeleted)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok, err = s.TakeFlash(ctx, common.FlashMessagesDeleted)
	require.NoError(t, err)
	assert.False(t, ok)

	// flash and userdata do not collide
	require.NoError(t, s.SetPendingTarget(ctx, "/inbox"))
	_, ok, _ = s.TakeFlash(ctx, common.KeyBeforePin)
	assert.False(t, ok)
}

func TestSession_End(t *testing.T) {
	m, _ := newManager()
	s := m.Open("sess-1", "user-1")
	ctx := context.Background()

	s.SetUnlockPassword([]byte("pw"))
	require.NoError(t, s.SetPendingTarget(ctx, "/inbox"))

	ended, err := m.Ended(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ended)

	require.NoError(t, s.End(ctx))

	ended, err = m.Ended(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, ended)
	ended, err = m.Ended(ctx, "sess-2")
	require.NoError(t, err)
	assert.False(t, ended)

	assert.False(t, s.Unlocked())
	_, ok, _ := s.TakePendingTarget(ctx)
	assert.False(t, ok)
	assert.Same(t, m.Secrets(), s.secrets)
}

func TestSession_EndedMarkerExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	m := NewManager(store, NewSecretCache(4, time.Minute))
	ctx := context.Background()

	require.NoError(t, m.Open("sess-1", "user-1").End(ctx))
	ended, err := m.Ended(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, ended)

	now = now.Add(2 * time.Minute)
	ended, err = m.Ended(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ended)
}

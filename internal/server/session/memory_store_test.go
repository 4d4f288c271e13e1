package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetTake(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", "k", "v"))

	v, ok, err := s.Get(ctx, "s1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = s.Get(ctx, "s2", "k")
	assert.False(t, ok, "sessions are isolated")

	v, ok, err = s.Take(ctx, "s1", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = s.Take(ctx, "s1", "k")
	assert.False(t, ok, "second take sees nothing")
}

func TestMemoryStore_DeleteDestroy(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", "a", "1"))
	require.NoError(t, s.Set(ctx, "s1", "b", "2"))
	require.NoError(t, s.Delete(ctx, "s1", "a"))

	_, ok, _ := s.Get(ctx, "s1", "a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "s1", "b")
	assert.True(t, ok)

	require.NoError(t, s.Destroy(ctx, "s1"))
	_, ok, _ = s.Get(ctx, "s1", "b")
	assert.False(t, ok)

	// no-ops on unknown sessions
	require.NoError(t, s.Delete(ctx, "nope", "a"))
	require.NoError(t, s.Destroy(ctx, "nope"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "s1", "k", "v"))
	require.NoError(t, s.Set(ctx, "s2", "k", "v"))

	now = now.Add(30 * time.Second)
	require.NoError(t, s.Set(ctx, "s2", "k2", "v2"))

	now = now.Add(45 * time.Second)
	_, ok, _ := s.Get(ctx, "s1", "k")
	assert.False(t, ok, "s1 expired")
	_, ok, _ = s.Get(ctx, "s2", "k")
	assert.True(t, ok, "s2 refreshed by the later write")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.Sweep())
}

func TestMemoryStore_ConcurrentTakeIsExactlyOnce(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "s1", "flash", "true"))

	var hits atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.Take(ctx, "s1", "flash"); ok {
				hits.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, hits.Load())
}

package events

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	mu       sync.Mutex
	sessions []string
	users    []string
}

func (f *fakeSecrets) Clear(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
}

func (f *fakeSecrets) ClearUser(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return 2
}

func (f *fakeSecrets) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessions...), append([]string(nil), f.users...)
}

func startListener(t *testing.T, sub message.Subscriber, secrets SecretClearer) {
	t.Helper()
	ls, err := NewListener(sub, secrets, metrics.Nop(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ls.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-ls.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

func TestMemoryBus_ClearsSecrets(t *testing.T) {
	pub, sub := NewMemoryBus(logging.Nop())
	secrets := &fakeSecrets{}
	startListener(t, sub, secrets)

	p := NewPublisher(pub)
	require.NoError(t, p.SessionEnded(context.Background(), "sid-1"))
	require.NoError(t, p.KeysChanged(context.Background(), "user-1"))

	require.Eventually(t, func() bool {
		s, u := secrets.snapshot()
		return len(s) == 1 && len(u) == 1
	}, 5*time.Second, 10*time.Millisecond)

	s, u := secrets.snapshot()
	assert.Equal(t, []string{"sid-1"}, s)
	assert.Equal(t, []string{"user-1"}, u)
}

func TestListener_DropsMalformedEvents(t *testing.T) {
	pub, sub := NewMemoryBus(logging.Nop())
	secrets := &fakeSecrets{}
	startListener(t, sub, secrets)

	require.NoError(t, pub.Publish(TopicKeysChanged, message.NewMessage(watermill.NewUUID(), []byte("{not json"))))
	require.NoError(t, pub.Publish(TopicKeysChanged, message.NewMessage(watermill.NewUUID(), []byte(`{"user_id":""}`))))
	require.NoError(t, NewPublisher(pub).KeysChanged(context.Background(), "user-2"))

	require.Eventually(t, func() bool {
		_, u := secrets.snapshot()
		return len(u) > 0
	}, 5*time.Second, 10*time.Millisecond)

	_, u := secrets.snapshot()
	assert.Equal(t, []string{"user-2"}, u)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                              { return nil }

func TestPublisher_Error(t *testing.T) {
	err := NewPublisher(failingPublisher{}).SessionEnded(context.Background(), "sid")
	assert.ErrorContains(t, err, "failed to publish event")
}

func TestRedisBus_PublishesToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub, sub, err := NewRedisBus(client, logging.Nop())
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, NewPublisher(pub).KeysChanged(context.Background(), "user-3"))

	n, err := client.XLen(context.Background(), TopicKeysChanged).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	l, err := logging.New("json", "debug", &buf)
	require.NoError(t, err)

	a := NewLoggerAdapter(l).With(watermill.LogFields{"topic": "t1"})
	a.Info("subscribed", watermill.LogFields{"handler": "h1"})
	a.Error("handler failed", errors.New("boom"), nil)
	a.Trace("noisy", nil)

	out := buf.String()
	assert.Contains(t, out, `"topic":"t1"`)
	assert.Contains(t, out, `"handler":"h1"`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, "noisy")
}

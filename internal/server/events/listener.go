package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
)

// SecretClearer drops cached unlock passwords.
type SecretClearer interface {
	Clear(sessionID string)
	ClearUser(userID string) int
}

// Listener applies events to the local secret cache.
type Listener struct {
	router  *message.Router
	secrets SecretClearer
	metrics metrics.Recorder
	log     logging.Logger
}

func NewListener(sub message.Subscriber, secrets SecretClearer, rec metrics.Recorder, l logging.Logger) (*Listener, error) {
	l = l.With("module", "events")

	router, err := message.NewRouter(message.RouterConfig{}, NewLoggerAdapter(l))
	if err != nil {
		return nil, err
	}

	ls := &Listener{router: router, secrets: secrets, metrics: rec, log: l}
	router.AddNoPublisherHandler("clear_session_secret", TopicSessionEnded, sub, ls.handleSessionEnded)
	router.AddNoPublisherHandler("clear_user_secrets", TopicKeysChanged, sub, ls.handleKeysChanged)
	return ls, nil
}

// Run blocks until ctx is done or the router fails.
func (ls *Listener) Run(ctx context.Context) error {
	return ls.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (ls *Listener) Running() chan struct{} {
	return ls.router.Running()
}

func (ls *Listener) Close() error {
	return ls.router.Close()
}

// Malformed payloads are acknowledged and dropped; redelivery cannot fix them.
func (ls *Listener) handleSessionEnded(msg *message.Message) error {
	var ev SessionEndedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil || ev.SessionID == "" {
		ls.log.Warn(msg.Context(), "dropping malformed event", "topic", TopicSessionEnded, "message_id", msg.UUID)
		return nil
	}

	ls.secrets.Clear(ev.SessionID)
	ls.metrics.SecretsCleared("session_ended", 1)
	ls.log.Debug(msg.Context(), "session secret cleared", "session_id", ev.SessionID)
	return nil
}

func (ls *Listener) handleKeysChanged(msg *message.Message) error {
	var ev KeysChangedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil || ev.UserID == "" {
		ls.log.Warn(msg.Context(), "dropping malformed event", "topic", TopicKeysChanged, "message_id", msg.UUID)
		return nil
	}

	n := ls.secrets.ClearUser(ev.UserID)
	ls.metrics.SecretsCleared("keys_changed", n)
	ls.log.Info(msg.Context(), "user secrets cleared", "user_id", ev.UserID, "count", n)
	return nil
}

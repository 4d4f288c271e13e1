package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type recorder struct {
	mu      sync.Mutex
	pins    []string
	events  []string
	cleared map[string]int
}

func (r *recorder) PinAttempt(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins = append(r.pins, result)
}

func (r *recorder) MessageEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) SecretsCleared(reason string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleared == nil {
		r.cleared = map[string]int{}
	}
	r.cleared[reason] += n
}

type fakeNotifier struct {
	users []string
	err   error
}

func (f *fakeNotifier) KeysChanged(_ context.Context, userID string) error {
	f.users = append(f.users, userID)
	return f.err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

type env struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	kdf      *cryptox.Argon2KDF
	cipher   *cryptox.X25519Cipher
	verifier *PinVerifier
	keys     *KeyService
	notifier *fakeNotifier
	rec      *recorder
	alice    *models.User
	bob      *models.User
}

const (
	alicePin = "1234"
	bobPin   = "567890"
)

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	e := &env{
		db:       db,
		rm:       rm,
		kdf:      cryptox.NewArgon2KDF(1, 8*1024, 1),
		cipher:   cryptox.NewX25519Cipher(),
		notifier: &fakeNotifier{},
		rec:      &recorder{},
	}
	e.verifier = NewPinVerifier(e.kdf, e.cipher)
	e.keys = NewKeyService(db, rm, e.kdf, e.verifier, NewAttemptLimiter(5, 5), e.notifier, logging.Nop())

	e.alice, err = e.keys.Provision(ctx, "alice", alicePin)
	require.NoError(t, err)
	e.bob, err = e.keys.Provision(ctx, "bob", bobPin)
	require.NoError(t, err)
	return e
}

func (e *env) messages() *MessageService {
	return NewMessageService(e.db, e.rm, e.rec, logging.Nop())
}

func (e *env) messageKeys(t *testing.T, userID string) *models.MessageKeys {
	t.Helper()
	keys, err := e.rm.Users(e.db).GetMessageKeys(context.Background(), userID)
	require.NoError(t, err)
	return keys
}

// send stores a message from alice to bob.
func (e *env) send(t *testing.T, subject string, removeOnRead bool) *models.Message {
	t.Helper()
	m, err := e.messages().Send(context.Background(), &models.Message{
		FromID: e.alice.ID, ToID: e.bob.ID, Subject: subject, Body: "body of " + subject,
		RemoveOnRead: removeOnRead,
	})
	require.NoError(t, err)
	return m
}

// password derives the current unlock password of a user from the PIN.
func (e *env) password(t *testing.T, userID, pin string) []byte {
	t.Helper()
	pw, err := e.verifier.Verify(pin, e.messageKeys(t, userID))
	require.NoError(t, err)
	return pw
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPinService(e *env, limiter *AttemptLimiter) *PinService {
	return NewPinService(e.db, e.rm, e.verifier, limiter, e.rec, logging.Nop())
}

func TestPinService_Unlock(t *testing.T) {
	e := newEnv(t)
	s := newPinService(e, NewAttemptLimiter(5, 5))
	ctx := context.Background()

	pw, err := s.Unlock(ctx, e.alice.ID, alicePin)
	require.NoError(t, err)
	assert.Len(t, pw, 32)

	_, err = s.Unlock(ctx, e.alice.ID, "9999")
	assert.ErrorIs(t, err, common.ErrIncorrectPin)

	_, err = s.Unlock(ctx, e.alice.ID, "12ab")
	assert.ErrorIs(t, err, common.ErrIncorrectPin)

	_, err = s.Unlock(ctx, "no-such-user", "1234")
	assert.ErrorIs(t, err, common.ErrIncorrectPin)

	assert.Equal(t, []string{metrics.PinAccepted, metrics.PinRejected, metrics.PinMalformed, metrics.PinRejected}, e.rec.pins)
}

func TestPinService_Throttled(t *testing.T) {
	e := newEnv(t)
	s := newPinService(e, NewAttemptLimiter(5, 2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Unlock(ctx, e.alice.ID, "0000")
		require.ErrorIs(t, err, common.ErrIncorrectPin)
	}

	// even the right PIN is refused without running the challenge
	_, err := s.Unlock(ctx, e.alice.ID, alicePin)
	assert.ErrorIs(t, err, common.ErrTooManyAttempts)
	assert.Equal(t, metrics.PinThrottled, e.rec.pins[len(e.rec.pins)-1])

	// bob is unaffected
	_, err = s.Unlock(ctx, e.bob.ID, bobPin)
	assert.NoError(t, err)
}

func TestPinService_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT salt").WillReturnError(errors.New("connection reset"))

	e := newEnv(t)
	s := NewPinService(db, repomanager.NewPostgresRepositoryManager(), e.verifier, NewAttemptLimiter(5, 5), e.rec, logging.Nop())

	_, err = s.Unlock(context.Background(), "u1", "1234")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrIncorrectPin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

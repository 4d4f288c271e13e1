package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,12}$`)

// ValidPin reports whether pin is 4 to 12 decimal digits.
func ValidPin(pin string) bool {
	return pinPattern.MatchString(pin)
}

// PinService runs a PIN attempt for a user: rate limiting, key lookup and
// the challenge.
type PinService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    *PinVerifier
	limiter     *AttemptLimiter
	metrics     metrics.Recorder
	log         logging.Logger
}

func NewPinService(db *sql.DB, m repomanager.RepositoryManager, verifier *PinVerifier,
	limiter *AttemptLimiter, rec metrics.Recorder, log logging.Logger) *PinService {
	return &PinService{
		db:          db,
		repomanager: m,
		verifier:    verifier,
		limiter:     limiter,
		metrics:     rec,
		log:         log.With("module", "pin"),
	}
}

// Unlock returns the user's unlock password, owned by the caller.
//
// Errors: common.ErrTooManyAttempts when throttled, common.ErrIncorrectPin
// for a malformed PIN, a wrong PIN or a user without keys, and
// common.ErrorInternal for storage or entropy failures.
func (s *PinService) Unlock(ctx context.Context, userID, pin string) ([]byte, error) {
	if !s.limiter.Allow(userID) {
		s.metrics.PinAttempt(metrics.PinThrottled)
		s.log.Warn(ctx, "pin attempt throttled", "user_id", userID)
		return nil, common.ErrTooManyAttempts
	}

	if !ValidPin(pin) {
		s.metrics.PinAttempt(metrics.PinMalformed)
		return nil, common.ErrIncorrectPin
	}

	keys, err := s.repomanager.Users(s.db).GetMessageKeys(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.PinAttempt(metrics.PinRejected)
			s.log.Warn(ctx, "pin attempt for user without keys", "user_id", userID, "result", metrics.PinRejected)
			return nil, common.ErrIncorrectPin
		}
		s.log.Error(ctx, "loading message keys", "user_id", userID, "err", err)
		return nil, common.ErrorInternal
	}

	password, err := s.verifier.Verify(pin, keys)
	if err != nil {
		if errors.Is(err, common.ErrIncorrectPin) {
			s.metrics.PinAttempt(metrics.PinRejected)
			s.log.Info(ctx, "pin rejected", "user_id", userID, "result", metrics.PinRejected)
			return nil, common.ErrIncorrectPin
		}
		s.log.Error(ctx, "pin challenge failed", "user_id", userID, "err", err)
		return nil, common.ErrorInternal
	}

	s.metrics.PinAttempt(metrics.PinAccepted)
	s.log.Info(ctx, "pin accepted", "user_id", userID, "result", metrics.PinAccepted)
	return password, nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

const saltSize = 16

// KeysChangedNotifier is told when a user's salt or private key changed so
// cached unlock passwords for that user can be dropped everywhere.
type KeysChangedNotifier interface {
	KeysChanged(ctx context.Context, userID string) error
}

// KeyService provisions accounts with a PIN-sealed key pair and re-seals
// the private key under a new PIN.
type KeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	kdf         KDF
	verifier    *PinVerifier
	limiter     *AttemptLimiter
	notifier    KeysChangedNotifier
	log         logging.Logger
}

func NewKeyService(db *sql.DB, m repomanager.RepositoryManager, kdf KDF, verifier *PinVerifier,
	limiter *AttemptLimiter, notifier KeysChangedNotifier, log logging.Logger) *KeyService {
	return &KeyService{
		db:          db,
		repomanager: m,
		kdf:         kdf,
		verifier:    verifier,
		limiter:     limiter,
		notifier:    notifier,
		log:         log.With("module", "keys"),
	}
}

// Provision creates a user whose private key is sealed under the password
// derived from pin.
func (s *KeyService) Provision(ctx context.Context, userName, pin string) (*models.User, error) {
	if !ValidPin(pin) {
		return nil, fmt.Errorf("%w: pin must be 4 to 12 digits", common.ErrValidation)
	}

	keys, err := s.sealNewKeys(pin)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:   userName,
		Salt:       keys.Salt,
		PublicKey:  keys.PublicKey,
		PrivateKey: keys.PrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "user provisioned", "user_id", u.ID)
	return u, nil
}

func (s *KeyService) sealNewKeys(pin string) (*models.MessageKeys, error) {
	pub, priv, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	defer shared.WipeByteArray(priv)

	salt, err := shared.GenerateRandByteArray(saltSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	pw := s.kdf.Derive(pin, salt)
	defer shared.WipeByteArray(pw)

	sealed, err := cryptox.SealPrivateKey(priv, pw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &models.MessageKeys{Salt: salt, PublicKey: pub, PrivateKey: sealed}, nil
}

// ChangePin re-seals the private key under newPin with a fresh salt. The
// key pair itself is unchanged, so existing messages stay readable. The old
// PIN check shares the attempt limiter with PinService.
func (s *KeyService) ChangePin(ctx context.Context, userID, oldPin, newPin string) error {
	if !s.limiter.Allow(userID) {
		return common.ErrTooManyAttempts
	}
	if !ValidPin(newPin) {
		return fmt.Errorf("%w: pin must be 4 to 12 digits", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)
	keys, err := repo.GetMessageKeys(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrIncorrectPin
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	oldPw, err := s.verifier.Verify(oldPin, keys)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(oldPw)

	priv, err := cryptox.OpenPrivateKey(keys.PrivateKey, oldPw)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	defer shared.WipeByteArray(priv)

	salt, err := shared.GenerateRandByteArray(saltSize)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	newPw := s.kdf.Derive(newPin, salt)
	defer shared.WipeByteArray(newPw)

	sealed, err := cryptox.SealPrivateKey(priv, newPw)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := repo.UpdateKeys(ctx, userID, &models.MessageKeys{Salt: salt, PublicKey: keys.PublicKey, PrivateKey: sealed}); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := s.notifier.KeysChanged(ctx, userID); err != nil {
		// the update is committed; other instances fall back to idle expiry
		s.log.Error(ctx, "publishing keys changed", "user_id", userID, "err", err)
	}
	s.log.Info(ctx, "pin changed", "user_id", userID)
	return nil
}

// Lookup finds a user by name.
func (s *KeyService) Lookup(ctx context.Context, userName string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return u, nil
}

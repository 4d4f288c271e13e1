package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/metrics"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/users"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

// MessageService implements the message lifecycle: Unread -> Read ->
// (Deleted | persists), plus explicit deletion.
//
// Missing, foreign and deleted hashes all surface as common.ErrorNotFound.
// Persistence failures on mutations surface as common.ErrStoreFailure.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     metrics.Recorder
	log         logging.Logger
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, rec metrics.Recorder, log logging.Logger) *MessageService {
	return &MessageService{db: db, repomanager: m, metrics: rec, log: log.With("module", "messages")}
}

// Open fetches a message and applies the read transition to that same
// record in one transaction: viewed is set once, and a remove-on-read
// message is deleted right after. The returned message is the fetched
// record, so the caller can still render it, and keys are the ones
// unlockPassword was checked against.
//
// Nothing is written unless unlockPassword still opens the user's sealed
// private key; a password cached before a PIN change yields
// common.ErrPinLocked.
func (s *MessageService) Open(ctx context.Context, userID, hash string, unlockPassword []byte) (*models.Message, *models.MessageKeys, error) {
	var (
		msg  *models.Message
		keys *models.MessageKeys
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		m, err := repo.Get(ctx, userID, hash)
		if err != nil {
			return err
		}

		k, err := s.repomanager.Users(tx).GetMessageKeys(ctx, userID)
		if err != nil {
			return err
		}
		priv, err := cryptox.OpenPrivateKey(k.PrivateKey, unlockPassword)
		if err != nil {
			return common.ErrPinLocked
		}
		shared.WipeByteArray(priv)

		if !m.Viewed {
			if _, err := repo.SetViewed(ctx, m.ID); err != nil {
				return err
			}
		}
		if m.RemoveOnRead {
			if err := repo.Delete(ctx, userID, m.ID); err != nil {
				return err
			}
		}
		msg, keys = m, k
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, nil, common.ErrorNotFound
		case errors.Is(err, common.ErrPinLocked):
			s.log.Info(ctx, "stale unlock password", "user_id", userID)
			return nil, nil, common.ErrPinLocked
		}
		s.log.Error(ctx, "opening message", "user_id", userID, "err", err)
		return nil, nil, fmt.Errorf("%w: %v", common.ErrStoreFailure, err)
	}

	if !msg.Viewed {
		s.metrics.MessageEvent(metrics.MessageRead)
	}
	if msg.RemoveOnRead {
		s.metrics.MessageEvent(metrics.MessageRemovedOnRead)
		s.log.Info(ctx, "message removed on read", "user_id", userID, "message_id", msg.ID)
	}
	return msg, keys, nil
}

// Inbox lists the user's live messages, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]*models.Message, error) {
	list, err := s.repomanager.Messages(s.db).Inbox(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "loading inbox", "user_id", userID, "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return list, nil
}

// Delete removes one message by hash.
func (s *MessageService) Delete(ctx context.Context, userID, hash string) error {
	repo := s.repomanager.Messages(s.db)

	m, err := repo.Get(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.storeFailure(ctx, "deleting message", userID, err)
	}

	if err := repo.Delete(ctx, userID, m.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.storeFailure(ctx, "deleting message", userID, err)
	}

	s.metrics.MessageEvent(metrics.MessageDeleted)
	return nil
}

// DeleteAll removes every message of the user. A failure is reported as a
// whole even when some rows were already removed; callers re-read the
// inbox to show what is left.
func (s *MessageService) DeleteAll(ctx context.Context, userID string) error {
	n, err := s.repomanager.Messages(s.db).DeleteAll(ctx, userID)
	if err != nil {
		return s.storeFailure(ctx, "deleting all messages", userID, err)
	}

	s.metrics.MessageEvent(metrics.MessagesDeletedAll)
	s.log.Info(ctx, "inbox emptied", "user_id", userID, "count", n)
	return nil
}

// Send stores a prepared message.
func (s *MessageService) Send(ctx context.Context, msg *models.Message) (*models.Message, error) {
	sent, err := s.repomanager.Messages(s.db).Send(ctx, msg)
	if err != nil {
		return nil, s.storeFailure(ctx, "sending message", msg.FromID, err)
	}
	s.metrics.MessageEvent(metrics.MessageSent)
	return sent, nil
}

// MessageKeys loads the reader's keys for decrypting bodies.
func (s *MessageService) MessageKeys(ctx context.Context, userID string) (*models.MessageKeys, error) {
	keys, err := s.repomanager.Users(s.db).GetMessageKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return keys, nil
}

// Recipients resolves user names for outgoing messages.
func (s *MessageService) Recipients() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *MessageService) storeFailure(ctx context.Context, op, userID string, err error) error {
	s.metrics.MessageEvent(metrics.MessageStoreFailure)
	s.log.Error(ctx, op, "user_id", userID, "err", err)
	return fmt.Errorf("%w: %v", common.ErrStoreFailure, err)
}

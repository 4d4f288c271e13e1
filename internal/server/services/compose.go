package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/repositories/repomanager"
)

const replyPrefix = "RE: "

// ComposeResolver turns an optional identifier from a compose link into a
// ReplyContext. The identifier is either the hash of a message in the
// user's inbox (a reply to its sender) or a user name (a new message to
// that user).
type ComposeResolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewComposeResolver(db *sql.DB, m repomanager.RepositoryManager) *ComposeResolver {
	return &ComposeResolver{db: db, repomanager: m}
}

// Resolve returns nil for a nil identifier, and common.ErrInvalidIdentifier
// when the identifier matches nothing.
func (r *ComposeResolver) Resolve(ctx context.Context, userID string, identifier *string) (*models.ReplyContext, error) {
	if identifier == nil {
		return nil, nil
	}
	id := strings.TrimSpace(*identifier)
	if id == "" {
		return nil, common.ErrInvalidIdentifier
	}

	users := r.repomanager.Users(r.db)

	msg, err := r.repomanager.Messages(r.db).Get(ctx, userID, id)
	switch {
	case err == nil:
		sender, err := users.GetByID(ctx, msg.FromID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrInvalidIdentifier
			}
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		rc := withKey(&models.ReplyContext{ToName: sender.UserName, Subject: replySubject(msg.Subject)}, sender)
		return rc, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	u, err := users.GetByName(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidIdentifier
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return withKey(&models.ReplyContext{ToName: u.UserName}, u), nil
}

func withKey(rc *models.ReplyContext, u *models.User) *models.ReplyContext {
	if len(u.PublicKey) > 0 {
		rc.PublicKey = u.PublicKey
		rc.Fingerprint = cryptox.Fingerprint(u.PublicKey)
	}
	return rc
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToUpper(subject), strings.ToUpper(replyPrefix)) {
		return subject
	}
	return replyPrefix + subject
}

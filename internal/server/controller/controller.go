package controller

import (
	"context"

	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/codec"
	"github.com/dmitrijs2005/pinmail/internal/server/services"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/dmitrijs2005/pinmail/internal/shared"
	"github.com/go-playground/validator/v10"
)

// User-visible texts.
const (
	TextIncorrectPin     = "The PIN you entered was incorrect. Please try again"
	TextTooManyAttempts  = "Too many PIN attempts. Please wait a minute and try again."
	TextMessageDeleted   = "Message has been deleted"
	TextMessagesDeleted  = "All messages have been deleted."
	TextDeleteFailed     = "Error deleting message, try again later."
	TextDeleteAllFailed  = "Error deleting messages, try again later."
	TextMessageSent      = "Your message has been sent!"
	TextSendFailed       = "Error sending message, try again later."
	TextEncryptionHint   = "This message will be encrypted automatically if you have javascript enabled."
	TextPinChanged       = "Your PIN has been changed."
	TextUnknownRecipient = "is not a known user"
)

// Render data keys.
const (
	KeyReturnMessage  = "returnMessage"
	KeyErrors         = "errors"
	KeyMessages       = "messages"
	KeyMessage        = "message"
	KeyPublicKey      = "public_key"
	KeyFingerprint    = "fingerprint"
	KeyEncryptionHint = "encryption_hint"
)

const flagTrue = "true"

// SessionEndedNotifier announces a finished session to other instances.
type SessionEndedNotifier interface {
	SessionEnded(ctx context.Context, sessionID string) error
}

type Controller struct {
	messages *services.MessageService
	pins     *services.PinService
	keys     *services.KeyService
	resolver *services.ComposeResolver
	codec    *codec.Codec
	notifier SessionEndedNotifier
	validate *validator.Validate
	log      logging.Logger
}

func New(ms *services.MessageService, ps *services.PinService, ks *services.KeyService,
	rs *services.ComposeResolver, c *codec.Codec, n SessionEndedNotifier, l logging.Logger) *Controller {
	return &Controller{
		messages: ms,
		pins:     ps,
		keys:     ks,
		resolver: rs,
		codec:    c,
		notifier: n,
		validate: newValidator(),
		log:      l.With("module", "controller"),
	}
}

// unlocked returns the cached unlock password, or a redirect to the PIN
// prompt after remembering resume as the target. A cached password that no
// longer opens the user's sealed key, as after a PIN change in another
// session, is dropped and treated as absent. The password is a copy the
// caller must wipe.
func (c *Controller) unlocked(ctx context.Context, sess *session.Session, resume string) ([]byte, Outcome, error) {
	if pw, ok := sess.UnlockPassword(); ok {
		fresh, err := c.opensKeys(ctx, sess.UserID, pw)
		if err != nil {
			shared.WipeByteArray(pw)
			return nil, nil, err
		}
		if fresh {
			return pw, nil, nil
		}
		shared.WipeByteArray(pw)
		c.log.Info(ctx, "dropping stale unlock password", "user_id", sess.UserID)
	}
	return c.lock(ctx, sess, resume)
}

// lock forgets the session's password and sends it to the PIN prompt.
func (c *Controller) lock(ctx context.Context, sess *session.Session, resume string) ([]byte, Outcome, error) {
	sess.ClearUnlockPassword()
	if err := sess.SetPendingTarget(ctx, resume); err != nil {
		return nil, nil, err
	}
	return nil, Redirect{Target: PathPin}, nil
}

func (c *Controller) opensKeys(ctx context.Context, userID string, pw []byte) (bool, error) {
	keys, err := c.messages.MessageKeys(ctx, userID)
	if err != nil {
		return false, err
	}
	priv, err := cryptox.OpenPrivateKey(keys.PrivateKey, pw)
	if err != nil {
		return false, nil
	}
	shared.WipeByteArray(priv)
	return true, nil
}

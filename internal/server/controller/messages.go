package controller

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/server/codec"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

// Read shows one message and applies the read transition. Unknown and
// foreign hashes go back to the inbox.
func (c *Controller) Read(ctx context.Context, sess *session.Session, hash string) (Outcome, error) {
	pw, out, err := c.unlocked(ctx, sess, PathRead(hash))
	if out != nil || err != nil {
		return out, err
	}
	defer shared.WipeByteArray(pw)

	msg, keys, err := c.messages.Open(ctx, sess.UserID, hash, pw)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return Redirect{Target: PathInbox}, nil
		case errors.Is(err, common.ErrPinLocked):
			// keys changed after the freshness check; nothing was consumed
			_, out, err := c.lock(ctx, sess, PathRead(hash))
			return out, err
		}
		return nil, err
	}

	view := c.codec.PrepareOutput([]*models.Message{msg}, keys, pw)[0]
	return Render{
		Page:  PageRead,
		Title: view.Subject,
		Data:  map[string]any{KeyMessage: view},
	}, nil
}

// Inbox lists the user's messages and shows a pending send confirmation
// once.
func (c *Controller) Inbox(ctx context.Context, sess *session.Session) (Outcome, error) {
	pw, out, err := c.unlocked(ctx, sess, PathInbox)
	if out != nil || err != nil {
		return out, err
	}
	defer shared.WipeByteArray(pw)

	notice, _, err := sess.TakeFlash(ctx, common.FlashReturnMessage)
	if err != nil {
		return nil, err
	}
	return c.renderInbox(ctx, sess, pw, notice)
}

// Delete removes one message, or all of them for common.DeleteAllIdentifier.
// Success redirects to the confirmation view through a read-once marker, so
// a resubmission can never show a second confirmation.
func (c *Controller) Delete(ctx context.Context, sess *session.Session, hash string) (Outcome, error) {
	pw, out, err := c.unlocked(ctx, sess, PathInbox)
	if out != nil || err != nil {
		return out, err
	}
	defer shared.WipeByteArray(pw)

	if hash == common.DeleteAllIdentifier {
		if err := c.messages.DeleteAll(ctx, sess.UserID); err != nil {
			if errors.Is(err, common.ErrStoreFailure) {
				// the store may have removed some rows, show what is left
				return c.renderInbox(ctx, sess, pw, TextDeleteAllFailed)
			}
			return nil, err
		}
		return c.confirmDeleted(ctx, sess, common.FlashMessagesDeleted)
	}

	if err := c.messages.Delete(ctx, sess.UserID, hash); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return Redirect{Target: PathInbox}, nil
		case errors.Is(err, common.ErrStoreFailure):
			return c.renderInbox(ctx, sess, pw, TextDeleteFailed)
		default:
			return nil, err
		}
	}
	return c.confirmDeleted(ctx, sess, common.FlashMessageDeleted)
}

func (c *Controller) confirmDeleted(ctx context.Context, sess *session.Session, marker string) (Outcome, error) {
	if err := sess.SetFlash(ctx, marker, flagTrue); err != nil {
		return nil, err
	}
	return Redirect{Target: PathDeleted}, nil
}

// Deleted consumes a deletion marker and confirms it. Without a marker, as
// on a reload, it goes to the inbox.
func (c *Controller) Deleted(ctx context.Context, sess *session.Session) (Outcome, error) {
	pw, out, err := c.unlocked(ctx, sess, PathDeleted)
	if out != nil || err != nil {
		return out, err
	}
	defer shared.WipeByteArray(pw)

	_, one, err := sess.TakeFlash(ctx, common.FlashMessageDeleted)
	if err != nil {
		return nil, err
	}
	_, all, err := sess.TakeFlash(ctx, common.FlashMessagesDeleted)
	if err != nil {
		return nil, err
	}

	switch {
	case one:
		return c.renderInbox(ctx, sess, pw, TextMessageDeleted)
	case all:
		return c.renderInbox(ctx, sess, pw, TextMessagesDeleted)
	default:
		return Redirect{Target: PathInbox}, nil
	}
}

// Send shows the compose form, pre-filled from identifier when it names a
// message of the user or another user, and stores a submitted form. A bad
// identifier falls back to the blank form.
func (c *Controller) Send(ctx context.Context, sess *session.Session, identifier *string, form *SendForm) (Outcome, error) {
	pw, out, err := c.unlocked(ctx, sess, PathSendTo(identifier))
	if out != nil || err != nil {
		return out, err
	}
	shared.WipeByteArray(pw)

	rc, err := c.resolver.Resolve(ctx, sess.UserID, identifier)
	if err != nil {
		if errors.Is(err, common.ErrInvalidIdentifier) {
			return Redirect{Target: PathSend}, nil
		}
		return nil, err
	}

	data := map[string]any{
		"to_name":    "",
		"subject":    "",
		"action_uri": PathSendTo(identifier),
		KeyPublicKey: "",
	}
	if rc != nil {
		data["to_name"] = rc.ToName
		data["subject"] = rc.Subject
	}
	if rc.HasPublicKey() {
		data[KeyPublicKey] = base64.StdEncoding.EncodeToString(rc.PublicKey)
		data[KeyFingerprint] = rc.Fingerprint
		data[KeyEncryptionHint] = true
		data[KeyReturnMessage] = TextEncryptionHint
	}

	if form == nil {
		return renderSend(data), nil
	}

	data["to_name"] = form.Recipient
	data["subject"] = form.Subject
	data["message"] = form.Message
	data["remove_on_read"] = form.RemoveOnRead

	if errs := fieldErrors(c.validate, form); errs != nil {
		data[KeyErrors] = errs
		return renderSend(data), nil
	}

	msg, err := c.codec.PrepareInput(ctx, c.messages.Recipients(), codec.Draft{
		To:           form.Recipient,
		Subject:      form.Subject,
		Body:         form.Message,
		RemoveOnRead: form.RemoveOnRead,
	}, sess.UserID)
	if err != nil {
		switch {
		case errors.Is(err, codec.ErrUnknownRecipient):
			data[KeyErrors] = map[string]string{"recipient": TextUnknownRecipient}
			return renderSend(data), nil
		case errors.Is(err, common.ErrValidation):
			data[KeyErrors] = map[string]string{"message": "is invalid"}
			return renderSend(data), nil
		}
		c.log.Error(ctx, "preparing message", "user_id", sess.UserID, "err", err)
		data[KeyReturnMessage] = TextSendFailed
		return renderSend(data), nil
	}

	if _, err := c.messages.Send(ctx, msg); err != nil {
		if errors.Is(err, common.ErrStoreFailure) {
			data[KeyReturnMessage] = TextSendFailed
			return renderSend(data), nil
		}
		return nil, err
	}

	if err := sess.SetFlash(ctx, common.FlashReturnMessage, TextMessageSent); err != nil {
		return nil, err
	}
	return Redirect{Target: PathInbox}, nil
}

func renderSend(data map[string]any) Render {
	return Render{Page: PageSend, Title: "Send Message", Data: data}
}

func (c *Controller) renderInbox(ctx context.Context, sess *session.Session, pw []byte, notice string) (Outcome, error) {
	list, err := c.messages.Inbox(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	keys, err := c.messages.MessageKeys(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	data := map[string]any{KeyMessages: c.codec.PrepareOutput(list, keys, pw)}
	if notice != "" {
		data[KeyReturnMessage] = notice
	}
	return Render{Page: PageInbox, Title: "Inbox", Data: data}, nil
}

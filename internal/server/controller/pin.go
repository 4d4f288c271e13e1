package controller

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

func renderPin(notice string) Render {
	data := map[string]any{}
	if notice != "" {
		data[KeyReturnMessage] = notice
	}
	return Render{Page: PagePin, Title: "Message PIN", Data: data}
}

// EnterPin shows the PIN prompt, or checks a submitted PIN. On success the
// unlock password is cached for the session and the request that led to the
// prompt is resumed. Every failure shows the same text.
func (c *Controller) EnterPin(ctx context.Context, sess *session.Session, form *PinForm) (Outcome, error) {
	if form == nil {
		return renderPin(""), nil
	}
	if errs := fieldErrors(c.validate, form); errs != nil {
		return renderPin(TextIncorrectPin), nil
	}

	pw, err := c.pins.Unlock(ctx, sess.UserID, form.Pin)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			return renderPin(TextTooManyAttempts), nil
		case errors.Is(err, common.ErrIncorrectPin):
			return renderPin(TextIncorrectPin), nil
		default:
			return nil, err
		}
	}
	sess.SetUnlockPassword(pw)
	shared.WipeByteArray(pw)

	target, ok, err := sess.TakePendingTarget(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || !SafeTarget(target) || target == PathPin {
		target = PathInbox
	}
	return Redirect{Target: target}, nil
}

// ChangePin re-seals the private key under a new PIN. Cached passwords of
// the user are dropped, so the next protected request prompts again.
func (c *Controller) ChangePin(ctx context.Context, sess *session.Session, form *ChangePinForm) (Outcome, error) {
	page := func(notice string, errs map[string]string) Render {
		data := map[string]any{}
		if notice != "" {
			data[KeyReturnMessage] = notice
		}
		if errs != nil {
			data[KeyErrors] = errs
		}
		return Render{Page: PageChangePin, Title: "Change PIN", Data: data}
	}

	if form == nil {
		return page("", nil), nil
	}
	if errs := fieldErrors(c.validate, form); errs != nil {
		return page("", errs), nil
	}

	err := c.keys.ChangePin(ctx, sess.UserID, form.OldPin, form.NewPin)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrTooManyAttempts):
		return page(TextTooManyAttempts, nil), nil
	case errors.Is(err, common.ErrIncorrectPin):
		return page(TextIncorrectPin, nil), nil
	case errors.Is(err, common.ErrValidation):
		return page("", map[string]string{"new_pin": "is invalid"}), nil
	default:
		return nil, err
	}

	sess.ClearUnlockPassword()
	if err := sess.SetFlash(ctx, common.FlashReturnMessage, TextPinChanged); err != nil {
		return nil, err
	}
	return Redirect{Target: PathInbox}, nil
}

// Logout locks the session, drops its state and tells other instances.
func (c *Controller) Logout(ctx context.Context, sess *session.Session) (Outcome, error) {
	if err := sess.End(ctx); err != nil {
		return nil, err
	}
	if c.notifier != nil {
		if err := c.notifier.SessionEnded(ctx, sess.ID); err != nil {
			c.log.Error(ctx, "publishing session ended", "session_id", sess.ID, "err", err)
		}
	}
	return Render{Page: PageLoggedOut, Title: "Logged out", Data: map[string]any{}}, nil
}

package cli

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/pinmail/internal/server/controller"
)

// Send composes a message. An optional identifier pre-fills the form from a
// message hash (reply) or a user name.
func (a *App) Send(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	var identifier *string
	if len(args) > 0 {
		identifier = &args[0]
	}

	out, err := a.ctrl.Send(ctx, a.sess, identifier, nil)
	r, err := a.resolve(ctx, out, err)
	if err != nil {
		return a.report(err)
	}
	if r.Page != controller.PageSend {
		a.render(r)
		return nil
	}

	if fp := str(r.Data, controller.KeyFingerprint); fp != "" {
		a.printf("Recipient key fingerprint: %s\n", fp)
	}
	form, err := a.fillSendForm(r)
	if err != nil {
		return a.report(err)
	}

	out, err = a.ctrl.Send(ctx, a.sess, formIdentifier(r), form)
	return a.report(a.follow(ctx, out, err))
}

func (a *App) fillSendForm(r controller.Render) (*controller.SendForm, error) {
	to, err := GetTextDefault(a.reader, "Recipient", str(r.Data, "to_name"), a.out)
	if err != nil {
		return nil, err
	}
	subject, err := GetTextDefault(a.reader, "Subject", str(r.Data, "subject"), a.out)
	if err != nil {
		return nil, err
	}
	body, err := GetMultiline(a.reader, "Message", a.out)
	if err != nil {
		return nil, err
	}
	burn, err := GetYesNo(a.reader, "Remove after reading?", a.out)
	if err != nil {
		return nil, err
	}
	return &controller.SendForm{Recipient: to, Subject: subject, Message: body, RemoveOnRead: burn}, nil
}

// formIdentifier recovers the identifier the compose form was resolved for.
func formIdentifier(r controller.Render) *string {
	action := str(r.Data, "action_uri")
	rest, ok := strings.CutPrefix(action, controller.PathSend+"/")
	if !ok || rest == "" {
		return nil
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return nil
	}
	return &id
}

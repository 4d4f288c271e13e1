package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

const maxRedirects = 8

// resolve follows redirects the way a browser would until a page is
// rendered. A redirect to the PIN prompt asks for the PIN on the terminal.
func (a *App) resolve(ctx context.Context, out controller.Outcome, err error) (controller.Render, error) {
	for hops := 0; ; hops++ {
		if err != nil {
			return controller.Render{}, err
		}
		switch o := out.(type) {
		case controller.Render:
			return o, nil
		case controller.Redirect:
			if hops >= maxRedirects {
				return controller.Render{}, fmt.Errorf("too many redirects, last %s", o.Target)
			}
			out, err = a.route(ctx, o.Target)
		default:
			return controller.Render{}, fmt.Errorf("unexpected outcome %T", out)
		}
	}
}

func (a *App) follow(ctx context.Context, out controller.Outcome, err error) error {
	r, err := a.resolve(ctx, out, err)
	if err != nil {
		return err
	}
	a.render(r)
	return nil
}

// route maps a redirect target to the controller entry point serving it.
func (a *App) route(ctx context.Context, target string) (controller.Outcome, error) {
	readPrefix := controller.PathRead("")

	switch {
	case target == controller.PathInbox:
		return a.ctrl.Inbox(ctx, a.sess)
	case target == controller.PathDeleted:
		return a.ctrl.Deleted(ctx, a.sess)
	case target == controller.PathPin:
		return a.enterPin(ctx)
	case target == controller.PathChangePin:
		return a.ctrl.ChangePin(ctx, a.sess, nil)
	case target == controller.PathSend:
		return a.ctrl.Send(ctx, a.sess, nil, nil)
	case strings.HasPrefix(target, controller.PathSend+"/"):
		id, err := url.PathUnescape(strings.TrimPrefix(target, controller.PathSend+"/"))
		if err != nil {
			return nil, err
		}
		return a.ctrl.Send(ctx, a.sess, &id, nil)
	case strings.HasPrefix(target, readPrefix):
		hash, err := url.PathUnescape(strings.TrimPrefix(target, readPrefix))
		if err != nil {
			return nil, err
		}
		return a.ctrl.Read(ctx, a.sess, hash)
	}
	return nil, fmt.Errorf("no route for %s", target)
}

func (a *App) enterPin(ctx context.Context) (controller.Outcome, error) {
	pin, err := GetPin("Enter your PIN", a.out)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(pin)
	return a.ctrl.EnterPin(ctx, a.sess, &controller.PinForm{Pin: string(pin)})
}

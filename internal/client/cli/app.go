package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/server/auth"
	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/server/session"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Accounts provisions and finds users.
type Accounts interface {
	Provision(ctx context.Context, userName, pin string) (*models.User, error)
	Lookup(ctx context.Context, userName string) (*models.User, error)
}

// App drives the message controller for one terminal user. A login opens a
// session whose id is embedded in a JWT, so the same session can be used
// over HTTP with the printed token.
type App struct {
	ctrl     *controller.Controller
	sessions *session.Manager
	accounts Accounts
	secret   []byte
	tokenTTL time.Duration

	reader *bufio.Reader
	out    io.Writer

	userName string
	sess     *session.Session
	token    string
	expires  time.Time
}

func NewApp(ctrl *controller.Controller, sessions *session.Manager, accounts Accounts,
	secret []byte, tokenTTL time.Duration, in io.Reader, out io.Writer) *App {
	return &App{
		ctrl:     ctrl,
		sessions: sessions,
		accounts: accounts,
		secret:   secret,
		tokenTTL: tokenTTL,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) isLoggedIn() bool {
	return a.sess != nil
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return "guest"
	}
	if a.sess.Unlocked() {
		return a.userName + " unlocked"
	}
	return a.userName + " locked"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		a.printf("Please login first\n")
		return ErrNotLoggedIn
	}
	return nil
}

func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) report(err error) error {
	if err != nil && !errors.Is(err, ErrNotLoggedIn) {
		a.printf("Error: %v\n", err)
	}
	return err
}

// Register creates an account with a new key pair sealed under a PIN.
func (a *App) Register(ctx context.Context, args []string) error {
	name, err := a.argOrPrompt(args, "Enter user name")
	if err != nil {
		return a.report(err)
	}

	pin, err := GetPin("Choose a PIN", a.out)
	if err != nil {
		return a.report(err)
	}
	defer shared.WipeByteArray(pin)
	confirm, err := GetPin("Repeat the PIN", a.out)
	if err != nil {
		return a.report(err)
	}
	defer shared.WipeByteArray(confirm)
	if string(pin) != string(confirm) {
		a.printf("PINs do not match\n")
		return nil
	}

	u, err := a.accounts.Provision(ctx, name, string(pin))
	if err != nil {
		return a.report(err)
	}
	a.printf("User %s created\n", u.UserName)
	return nil
}

// Login opens a fresh, locked session for an existing user.
func (a *App) Login(ctx context.Context, args []string) error {
	name, err := a.argOrPrompt(args, "Enter user name")
	if err != nil {
		return a.report(err)
	}

	u, err := a.accounts.Lookup(ctx, name)
	if err != nil {
		return a.report(err)
	}

	token, sid, err := auth.GenerateToken(u.ID, a.secret, a.tokenTTL)
	if err != nil {
		return a.report(err)
	}

	if a.sess != nil {
		a.sess.ClearUnlockPassword()
	}
	a.sess = a.sessions.Open(sid, u.ID)
	a.userName = u.UserName
	a.token = token
	a.expires = time.Now().Add(a.tokenTTL)
	a.printf("Logged in as %s\n", u.UserName)
	return nil
}

// Inbox lists the messages of the user.
func (a *App) Inbox(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	out, err := a.ctrl.Inbox(ctx, a.sess)
	return a.report(a.follow(ctx, out, err))
}

// Read shows one message.
func (a *App) Read(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	hash, err := a.argOrPrompt(args, "Enter message hash")
	if err != nil {
		return a.report(err)
	}
	out, err := a.ctrl.Read(ctx, a.sess, hash)
	return a.report(a.follow(ctx, out, err))
}

// Delete removes one message, or every message for "all".
func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	hash, err := a.argOrPrompt(args, "Enter message hash or 'all'")
	if err != nil {
		return a.report(err)
	}
	out, err := a.ctrl.Delete(ctx, a.sess, hash)
	return a.report(a.follow(ctx, out, err))
}

// Unlock asks for the PIN without a pending request.
func (a *App) Unlock(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	out, err := a.enterPin(ctx)
	return a.report(a.follow(ctx, out, err))
}

// ChangePin re-seals the user's private key under a new PIN.
func (a *App) ChangePin(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	var pins [3][]byte
	for i, prompt := range []string{"Current PIN", "New PIN", "Repeat new PIN"} {
		p, err := GetPin(prompt, a.out)
		if err != nil {
			return a.report(err)
		}
		defer shared.WipeByteArray(p)
		pins[i] = p
	}

	form := &controller.ChangePinForm{OldPin: string(pins[0]), NewPin: string(pins[1]), ConfirmPin: string(pins[2])}
	out, err := a.ctrl.ChangePin(ctx, a.sess, form)
	return a.report(a.follow(ctx, out, err))
}

// Token prints the bearer token of the current session.
func (a *App) Token(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	a.printf("%s\n(expires %s)\n", a.token, humanizeTime(a.expires))
	return nil
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	out, err := a.ctrl.Logout(ctx, a.sess)
	err = a.follow(ctx, out, err)
	a.sess = nil
	a.userName = ""
	a.token = ""
	return a.report(err)
}

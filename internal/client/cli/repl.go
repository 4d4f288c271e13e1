package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Inbox(ctx context.Context) error
	Read(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Unlock(ctx context.Context) error
	ChangePin(ctx context.Context) error
	Token(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from reader until EOF or "exit" and dispatches
// them to a.
//
//	Not logged in:
//	  help, register [name], login [name], exit | quit
//
//	Logged in:
//	  inbox (l), read <hash>, delete <hash|all>, send [hash|name],
//	  pin, changepin, token, logout, exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pm (%s)> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: inbox (l), read, delete, send, pin, changepin, token, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx, args)

		case "login":
			_ = a.Login(ctx, args)

		case "l", "inbox":
			_ = a.Inbox(ctx)

		case "read":
			_ = a.Read(ctx, args)

		case "delete":
			_ = a.Delete(ctx, args)

		case "send", "reply":
			_ = a.Send(ctx, args)

		case "pin":
			_ = a.Unlock(ctx)

		case "changepin":
			_ = a.ChangePin(ctx)

		case "token":
			_ = a.Token(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Root runs the interactive loop until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to pinmail (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

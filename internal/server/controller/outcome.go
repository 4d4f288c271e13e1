// Package controller holds the message entry points. Each one returns an
// Outcome, either a page to render or a target to redirect to, and leaves
// realising it to the HTTP or CLI layer.
package controller

import (
	"net/url"
	"strings"
)

// Outcome is either a Render or a Redirect.
type Outcome interface {
	outcome()
}

// Render asks the presentation layer to show Page with Data.
type Render struct {
	Page  string         `json:"page"`
	Title string         `json:"title"`
	Data  map[string]any `json:"data"`
}

// Redirect asks the presentation layer to continue at Target, a local path.
type Redirect struct {
	Target string `json:"target"`
}

func (Render) outcome()   {}
func (Redirect) outcome() {}

const (
	PathInbox     = "/inbox"
	PathPin       = "/message/pin"
	PathDeleted   = "/message/deleted"
	PathSend      = "/message/send"
	PathChangePin = "/message/change_pin"
	PathLogout    = "/logout"

	PageRead      = "messages/read"
	PageInbox     = "messages/inbox"
	PageSend      = "messages/send"
	PagePin       = "messages/pin"
	PageChangePin = "messages/change_pin"
	PageLoggedOut = "session/ended"
)

// PathRead is the read URL of a message.
func PathRead(hash string) string {
	return "/message/read/" + url.PathEscape(hash)
}

// PathDelete is the delete URL of a message, or of all messages for
// common.DeleteAllIdentifier.
func PathDelete(hash string) string {
	return "/message/delete/" + url.PathEscape(hash)
}

// PathSendTo is the compose URL, optionally pre-filled from identifier.
func PathSendTo(identifier *string) string {
	if identifier == nil || *identifier == "" {
		return PathSend
	}
	return PathSend + "/" + url.PathEscape(*identifier)
}

// SafeTarget reports whether target may be used as a post-PIN redirect:
// a local absolute path that is not protocol relative.
func SafeTarget(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// Package common contains shared constants and sentinel errors used across
// pinmail components.
package common

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "pinmail_session"

// Session userdata keys.
const (
	KeyBeforePin = "before_msg_pin"
)

// Flash (read-once) keys.
const (
	FlashMessageDeleted  = "msg_delete"
	FlashMessagesDeleted = "msgs_delete"
	FlashReturnMessage   = "returnMessage"
)

// DeleteAllIdentifier is the hash value that selects every message of the user.
const DeleteAllIdentifier = "all"

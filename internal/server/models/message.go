package models

import "time"

// Message is a private message between two users.
//
// Hash is the opaque external identifier used in URLs. Body holds the
// armored ciphertext when Encrypted is set. Deleted is terminal.
type Message struct {
	ID           string
	Hash         string
	FromID       string
	ToID         string
	FromName     string
	ToName       string
	Subject      string
	Body         string
	Encrypted    bool
	Viewed       bool
	RemoveOnRead bool
	Deleted      bool
	CreatedAt    time.Time
}

// ReplyContext pre-fills the compose form. A nil *ReplyContext means a
// fresh message. PublicKey and Fingerprint are set only when the recipient
// has a key, so the client can encrypt before submitting.
type ReplyContext struct {
	ToName      string
	Subject     string
	PublicKey   []byte
	Fingerprint string
}

// HasPublicKey reports whether client-side encryption can be offered.
func (r *ReplyContext) HasPublicKey() bool {
	return r != nil && len(r.PublicKey) > 0
}

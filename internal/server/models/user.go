// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account holding a PIN-protected key pair.
//
// PrivateKey is sealed under the unlock password derived from the user's
// PIN and Salt; the server never holds it in the clear outside a request.
type User struct {
	ID         string
	UserName   string
	Salt       []byte
	PublicKey  []byte
	PrivateKey []byte
	CreatedAt  time.Time
}

// MessageKeys is the subset of User needed to verify a PIN and to decrypt
// messages.
type MessageKeys struct {
	Salt       []byte
	PublicKey  []byte
	PrivateKey []byte
}

// Keys returns the user's message keys.
func (u *User) Keys() *MessageKeys {
	return &MessageKeys{Salt: u.Salt, PublicKey: u.PublicKey, PrivateKey: u.PrivateKey}
}

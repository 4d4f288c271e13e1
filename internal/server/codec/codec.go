// Package codec turns stored messages into render views and compose input
// into stored messages. Bodies are encrypted to the recipient's public key
// and kept armored.
package codec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/cryptox"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/shared"
	"github.com/dustin/go-humanize"
)

// Cipher is the asymmetric primitive used for message bodies.
type Cipher interface {
	Encrypt(plaintext, publicKey []byte) ([]byte, error)
	Decrypt(ciphertext, privateKey, unlockPassword []byte) ([]byte, error)
}

// Recipients looks users up by name.
type Recipients interface {
	GetByName(ctx context.Context, userName string) (*models.User, error)
}

// ErrUnknownRecipient is a validation failure on the recipient field.
var ErrUnknownRecipient = fmt.Errorf("%w: unknown recipient", common.ErrValidation)

// View is a message ready for rendering.
type View struct {
	Hash          string    `json:"hash"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Encrypted     bool      `json:"encrypted"`
	Undecryptable bool      `json:"undecryptable,omitempty"`
	Viewed        bool      `json:"viewed"`
	RemoveOnRead  bool      `json:"remove_on_read"`
	SentAt        time.Time `json:"sent_at"`
	SentAgo       string    `json:"sent_ago"`
}

// Draft is validated compose input.
type Draft struct {
	To           string
	Subject      string
	Body         string
	RemoveOnRead bool
}

type Codec struct {
	cipher Cipher
	now    func() time.Time
}

func New(cipher Cipher) *Codec {
	return &Codec{cipher: cipher, now: time.Now}
}

// PrepareOutput decrypts message bodies with the reader's sealed private key
// and unlock password. A body that cannot be decrypted is blanked and
// flagged rather than failing the whole list.
func (c *Codec) PrepareOutput(msgs []*models.Message, keys *models.MessageKeys, unlockPassword []byte) []View {
	out := make([]View, 0, len(msgs))
	now := c.now()

	for _, m := range msgs {
		v := View{
			Hash:         m.Hash,
			From:         m.FromName,
			To:           m.ToName,
			Subject:      m.Subject,
			Body:         m.Body,
			Encrypted:    m.Encrypted,
			Viewed:       m.Viewed,
			RemoveOnRead: m.RemoveOnRead,
			SentAt:       m.CreatedAt,
			SentAgo:      humanize.RelTime(m.CreatedAt, now, "ago", "from now"),
		}
		if m.Encrypted {
			body, err := c.decrypt(m.Body, keys, unlockPassword)
			if err != nil {
				v.Body, v.Undecryptable = "", true
			} else {
				v.Body = body
			}
		}
		out = append(out, v)
	}
	return out
}

func (c *Codec) decrypt(armored string, keys *models.MessageKeys, unlockPassword []byte) (string, error) {
	if keys == nil {
		return "", common.ErrDecryptFailed
	}
	ct, err := cryptox.Dearmor(armored)
	if err != nil {
		return "", err
	}
	pt, err := c.cipher.Decrypt(ct, keys.PrivateKey, unlockPassword)
	if err != nil {
		return "", err
	}
	defer shared.WipeByteArray(pt)
	return string(pt), nil
}

// PrepareInput resolves the recipient and encrypts the body to them. A body
// that the client already armored is kept as is; it must still decode.
func (c *Codec) PrepareInput(ctx context.Context, users Recipients, d Draft, fromID string) (*models.Message, error) {
	to, err := users.GetByName(ctx, strings.TrimSpace(d.To))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	msg := &models.Message{
		FromID:       fromID,
		ToID:         to.ID,
		ToName:       to.UserName,
		Subject:      d.Subject,
		RemoveOnRead: d.RemoveOnRead,
		Encrypted:    true,
	}

	if cryptox.IsArmored(d.Body) {
		if _, err := cryptox.Dearmor(d.Body); err != nil {
			return nil, fmt.Errorf("%w: malformed encrypted body", common.ErrValidation)
		}
		msg.Body = strings.TrimSpace(d.Body)
		return msg, nil
	}

	ct, err := c.cipher.Encrypt([]byte(d.Body), to.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting body: %v", common.ErrorInternal, err)
	}
	msg.Body = cryptox.Armor(ct)
	return msg, nil
}

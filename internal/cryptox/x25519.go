package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/shared"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Ciphertext layout: ephemeral public key (32) || nonce (12) || AES-256-GCM
// ciphertext with 16-byte tag.
const (
	KeySize          = curve25519.ScalarSize
	gcmNonceSize     = 12
	gcmTagSize       = 16
	minEncryptedSize = KeySize + gcmNonceSize + gcmTagSize
	hkdfInfo         = "pinmail-ecies"
)

var ErrInvalidKey = errors.New("invalid key")

// randReader is the entropy source for ephemeral keys and nonces.
var randReader io.Reader = rand.Reader

// X25519Cipher encrypts to a recipient public key and decrypts with a private
// key sealed under the recipient's unlock password.
type X25519Cipher struct{}

func NewX25519Cipher() *X25519Cipher {
	return &X25519Cipher{}
}

// GenerateKeyPair returns a new X25519 key pair.
func GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	privateKey = make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, privateKey); err != nil {
		return nil, nil, fmt.Errorf("generate private key: %w", err)
	}
	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		shared.WipeByteArray(privateKey)
		return nil, nil, fmt.Errorf("derive public key: %w", err)
	}
	return publicKey, privateKey, nil
}

// Encrypt seals plaintext to publicKey.
func (c *X25519Cipher) Encrypt(plaintext, publicKey []byte) ([]byte, error) {
	if len(publicKey) != KeySize {
		return nil, fmt.Errorf("%w: public key length %d", ErrInvalidKey, len(publicKey))
	}

	ephPriv := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, ephPriv); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	defer shared.WipeByteArray(ephPriv)

	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive ephemeral public key: %w", err)
	}

	secret, err := curve25519.X25519(ephPriv, publicKey)
	if err != nil {
		return nil, fmt.Errorf("key exchange: %w", err)
	}

	aead, err := gcmFor(secret, ephPub)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, KeySize+gcmNonceSize+len(plaintext)+gcmTagSize)
	out = append(out, ephPub...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens sealedPrivateKey with unlockPassword and uses it to decrypt
// ciphertext. Every failure, wrong password included, is reported as
// common.ErrDecryptFailed.
func (c *X25519Cipher) Decrypt(ciphertext, sealedPrivateKey, unlockPassword []byte) ([]byte, error) {
	priv, err := OpenPrivateKey(sealedPrivateKey, unlockPassword)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(priv)

	return decryptWithKey(ciphertext, priv)
}

func decryptWithKey(ciphertext, priv []byte) ([]byte, error) {
	if len(ciphertext) < minEncryptedSize {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryptFailed)
	}

	ephPub := ciphertext[:KeySize]
	nonce := ciphertext[KeySize : KeySize+gcmNonceSize]
	body := ciphertext[KeySize+gcmNonceSize:]

	secret, err := curve25519.X25519(priv, ephPub)
	if err != nil {
		return nil, fmt.Errorf("%w: key exchange", common.ErrDecryptFailed)
	}

	aead, err := gcmFor(secret, ephPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}

	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// gcmFor derives the AES key from the X25519 shared secret and wipes the
// secret and derived key before returning.
func gcmFor(secret, ephPub []byte) (cipher.AEAD, error) {
	defer shared.WipeByteArray(secret)

	info := append([]byte(hkdfInfo), ephPub...)
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	defer shared.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

package services

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/shared"
)

// KDF derives an unlock password from a PIN and the account salt.
type KDF interface {
	Derive(pin string, salt []byte) []byte
}

// AsymmetricCipher encrypts to a public key and decrypts with a private key
// sealed under an unlock password. A wrong password must be reported as an
// error, never as a panic.
type AsymmetricCipher interface {
	Encrypt(plaintext, publicKey []byte) ([]byte, error)
	Decrypt(ciphertext, privateKey, unlockPassword []byte) ([]byte, error)
}

const challengeSize = 32

// randReader is the entropy source for challenge solutions.
var randReader io.Reader = rand.Reader

// PinVerifier checks a PIN by encrypting a random solution to the user's
// public key and decrypting it with the private key unlocked by the
// candidate password. No verifier of the PIN is ever stored.
type PinVerifier struct {
	kdf    KDF
	cipher AsymmetricCipher
}

func NewPinVerifier(kdf KDF, cipher AsymmetricCipher) *PinVerifier {
	return &PinVerifier{kdf: kdf, cipher: cipher}
}

// Verify returns the unlock password for pin, which the caller owns and
// must wipe. Every failure is common.ErrIncorrectPin except a broken
// entropy source. The candidate, solution and ciphertext are wiped on
// every path.
func (v *PinVerifier) Verify(pin string, keys *models.MessageKeys) ([]byte, error) {
	candidate := v.kdf.Derive(pin, keys.Salt)

	ok, err := v.challenge(candidate, keys)
	if err != nil || !ok {
		shared.WipeByteArray(candidate)
		if err != nil && !errors.Is(err, common.ErrIncorrectPin) {
			return nil, err
		}
		return nil, common.ErrIncorrectPin
	}
	return candidate, nil
}

func (v *PinVerifier) challenge(candidate []byte, keys *models.MessageKeys) (bool, error) {
	solution := make([]byte, challengeSize)
	if _, err := io.ReadFull(randReader, solution); err != nil {
		return false, fmt.Errorf("%w: challenge entropy: %v", common.ErrorInternal, err)
	}
	defer shared.WipeByteArray(solution)

	ciphertext, err := v.cipher.Encrypt(solution, keys.PublicKey)
	if err != nil {
		return false, common.ErrIncorrectPin
	}
	defer shared.WipeByteArray(ciphertext)

	answer, err := v.cipher.Decrypt(ciphertext, keys.PrivateKey, candidate)
	if err != nil {
		return false, common.ErrIncorrectPin
	}
	defer shared.WipeByteArray(answer)

	return subtle.ConstantTimeCompare(answer, solution) == 1, nil
}

package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// SealPrivateKey encrypts privateKey with XChaCha20-Poly1305 keyed by the
// unlock password. Output is nonce (24) || ciphertext+tag.
func SealPrivateKey(privateKey, unlockPassword []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(unlockPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(privateKey)+aead.Overhead())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, privateKey, nil), nil
}

// OpenPrivateKey reverses SealPrivateKey. A wrong password yields
// common.ErrDecryptFailed.
func OpenPrivateKey(sealed, unlockPassword []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(unlockPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed key too short", common.ErrDecryptFailed)
	}

	nonce, body := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	priv, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	if len(priv) != KeySize {
		return nil, fmt.Errorf("%w: private key length %d", common.ErrDecryptFailed, len(priv))
	}
	return priv, nil
}

// Fingerprint renders the SHA-256 of a public key as eight upper-case
// hex groups, e.g. "1A2B 3C4D ...".
func Fingerprint(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	h := strings.ToUpper(hex.EncodeToString(sum[:16]))

	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return strings.Join(groups, " ")
}

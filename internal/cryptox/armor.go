package cryptox

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	armorHeader = "-----BEGIN PINMAIL MESSAGE-----"
	armorFooter = "-----END PINMAIL MESSAGE-----"
	armorWidth  = 64
)

// Armor wraps ciphertext in a text block safe for form fields and storage.
func Armor(ciphertext []byte) string {
	enc := base64.StdEncoding.EncodeToString(ciphertext)

	var b strings.Builder
	b.WriteString(armorHeader)
	b.WriteByte('\n')
	for len(enc) > armorWidth {
		b.WriteString(enc[:armorWidth])
		b.WriteByte('\n')
		enc = enc[armorWidth:]
	}
	if enc != "" {
		b.WriteString(enc)
		b.WriteByte('\n')
	}
	b.WriteString(armorFooter)
	return b.String()
}

// IsArmored reports whether s looks like an Armor block. Clients that
// encrypt before submitting send bodies in this form.
func IsArmored(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, armorHeader) && strings.HasSuffix(s, armorFooter)
}

// Dearmor returns the ciphertext carried by an Armor block.
func Dearmor(s string) ([]byte, error) {
	if !IsArmored(s) {
		return nil, fmt.Errorf("not an armored message")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, armorHeader), armorFooter)
	s = strings.Join(strings.Fields(s), "")

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode armored message: %w", err)
	}
	return b, nil
}

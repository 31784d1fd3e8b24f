package cryptox

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes is the entropy of a session token. 32 bytes is twice the
// 128-bit floor for unguessable tokens; the hex form is 64 characters.
const tokenBytes = 32

// NewToken returns a cryptographically random session token in hex form.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// 32 bytes of entropy, well above the 128-bit floor for unguessable tokens.
const tokenBytes = 32

// NewSessionToken returns an opaque URL-safe session token drawn from the
// crypto random source. Tokens carry no structure; nothing is derivable from
// their value.
func NewSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)

	_, err := rand.Read(buf)

	if err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

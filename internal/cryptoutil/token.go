package cryptoutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomToken returns n cryptographic-quality random bytes, base64url
// encoded without padding.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptoutil: random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package auth

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 32

var randRead = rand.Read // mockable

// newToken returns a random url-safe token carrying 256 bits of entropy.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := randRead(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

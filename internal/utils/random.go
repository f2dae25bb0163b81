package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomString returns n random bytes encoded as unpadded base64url.
func RandomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

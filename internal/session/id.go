package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const idBytes = 32 // 256 bits

// GenerateID returns an unguessable, URL-safe session id.
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// backend/internal/auth/token.go
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// refreshTokenBytes gives 512 bits of entropy, 128 hex characters.
const refreshTokenBytes = 64

// GenerateRefreshToken returns a new opaque refresh token.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the storage key for a refresh token. Plaintext tokens are
// never persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

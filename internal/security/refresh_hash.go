package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Raw refresh tokens never touch the database; sessions store only a SHA-256
// digest. A leaked sessions table therefore cannot be replayed.

// HashRefreshToken returns the hex-encoded SHA-256 digest of token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RefreshTokenHashEqual checks a presented token against a stored digest in
// constant time.
func RefreshTokenHashEqual(token, storedHash string) bool {
	computed := HashRefreshToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost          = 12
	DefaultDigestLength = 32 // hex MD5
)

// Digest returns the fixed-length form a secret is stored and compared in
func Digest(secret string) string {
	sum := md5.Sum([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// NormalizeSecret digests a presented secret unless it already has the
// digest length, in which case the client pre-hashed it.
func NormalizeSecret(secret string, digestLength int) string {
	if digestLength <= 0 {
		digestLength = DefaultDigestLength
	}
	if len(secret) == digestLength {
		return strings.ToLower(secret)
	}
	return Digest(secret)
}

// HashSecret produces a bcrypt hash over the digest of secret
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(NormalizeSecret(secret, DefaultDigestLength)), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareSecret checks a normalized digest against a stored value, which
// is either a bcrypt hash of the digest or the bare digest itself.
// Both branches run in time independent of where the values differ.
func CompareSecret(stored, digest string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(digest)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(digest)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"referral/config"
	"referral/internal/domain/service"
)

// secretHasher hashes refresh secrets with HMAC-SHA256 under a server pepper,
// or plain SHA-256 when no pepper is configured.
type secretHasher struct {
	pepper []byte
}

// NewSecretHasher is the constructor for secretHasher.
func NewSecretHasher(cfg *config.Config) service.SecretHasher {
	return NewSecretHasherWithPepper(cfg.SecretKey.Pepper)
}

// NewSecretHasherWithPepper builds a hasher around an explicit pepper.
func NewSecretHasherWithPepper(pepper string) service.SecretHasher {
	return &secretHasher{pepper: []byte(pepper)}
}

// Hash returns the lowercase hex digest of secret.
func (h *secretHasher) Hash(secret string) string {
	if len(h.pepper) == 0 {
		sum := sha256.Sum256([]byte(secret))

		return hex.EncodeToString(sum[:])
	}

	mac := hmac.New(sha256.New, h.pepper)
	_, _ = mac.Write([]byte(secret))

	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEquals rejects on length mismatch, then compares in fixed time.
func (h *secretHasher) ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Matches verifies an applicant secret. Legacy bcrypt digests are checked with
// bcrypt, everything else against Hash.
func (h *secretHasher) Matches(secret, storedDigest string) bool {
	if secret == "" || storedDigest == "" {
		return false
	}

	if isBcryptDigest(storedDigest) {
		return bcrypt.CompareHashAndPassword([]byte(storedDigest), []byte(secret)) == nil
	}

	return h.ConstantTimeEquals(h.Hash(secret), strings.ToLower(storedDigest))
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

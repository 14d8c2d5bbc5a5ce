package entity

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const refreshSecretBytes = 32

// NewRefreshSecret returns a high entropy, URL safe refresh secret.
func NewRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random refresh secret")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FormatRefreshToken joins a session id and its secret into the two part
// stateful refresh token handed to clients.
func FormatRefreshToken(sessionID uuid.UUID, secret string) string {
	return sessionID.String() + "." + secret
}

// ParseRefreshToken splits a stateful refresh token. ok is false for anything
// that is not exactly "<uuid>.<secret>".
func ParseRefreshToken(token string) (sessionID uuid.UUID, secret string, ok bool) {
	idPart, secretPart, found := strings.Cut(token, ".")
	if !found || secretPart == "" || strings.Contains(secretPart, ".") {
		return uuid.Nil, "", false
	}

	id, err := uuid.Parse(idPart)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, "", false
	}

	return id, secretPart, true
}

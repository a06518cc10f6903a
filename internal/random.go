package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const opaqueTokenRawSize = 32

// NewSessionID returns a random session identifier.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewOpaqueToken returns prefix followed by 32 random bytes in base64url without
// padding. The result carries no structure a client could forge.
func NewOpaqueToken(prefix string) (string, error) {
	var raw [opaqueTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return prefix + base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ParseOpaqueToken checks that token was produced by NewOpaqueToken with prefix.
func ParseOpaqueToken(prefix, token string) error {
	if !strings.HasPrefix(token, prefix) {
		return errors.New("invalid token prefix")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token[len(prefix):])
	if err != nil {
		return err
	}
	if len(raw) != opaqueTokenRawSize {
		return errors.New("invalid token size")
	}
	return nil
}

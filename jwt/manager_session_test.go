package jwt

import (
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionRoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "gosso",
	})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := m.CreateSession(42, "sid-1", exp)
	require.NoError(t, err)

	claims, err := m.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UID)
	assert.Equal(t, "sid-1", claims.SID)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))
}

func TestParseSessionRequiresIdentity(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: secret})
	require.NoError(t, err)

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, SessionClaims{
		UID:              7,
		RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))},
	})
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = m.ParseSession(signed)
	assert.Error(t, err)
}

func TestNewManagerRejectsShortHMACSecret(t *testing.T) {
	_, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("short")})
	assert.Error(t, err)
}

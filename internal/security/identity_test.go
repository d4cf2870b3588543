package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identitySecret = "unit-test-secret"

func signedToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityAnonymous(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/items", nil)

	id := IdentityFromRequest(r, "203.0.113.9", identitySecret)

	assert.Equal(t, "ip:203.0.113.9", id.Key)
	assert.False(t, id.Authenticated)
}

func TestIdentityValidToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/items", nil)
	r.Header.Set("Authorization", "Bearer "+signedToken(t, identitySecret, "worker-42"))

	id := IdentityFromRequest(r, "203.0.113.9", identitySecret)

	assert.Equal(t, "user:worker-42", id.Key)
	assert.Equal(t, "203.0.113.9", id.IP)
	assert.True(t, id.Authenticated)
}

func TestIdentityBadSignatureFallsBackToIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/items", nil)
	r.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong-secret", "worker-42"))

	id := IdentityFromRequest(r, "203.0.113.9", identitySecret)

	assert.Equal(t, "ip:203.0.113.9", id.Key)
	assert.False(t, id.Authenticated)
}

func TestIdentityGarbageToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/items", nil)
	r.Header.Set("Authorization", "Bearer not.a.token")

	id := IdentityFromRequest(r, "203.0.113.9", identitySecret)

	assert.Equal(t, "ip:203.0.113.9", id.Key)
}

func TestIdentityMissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(identitySecret))
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/v1/items", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	id := IdentityFromRequest(r, "203.0.113.9", identitySecret)

	assert.Equal(t, "ip:203.0.113.9", id.Key)
	assert.False(t, id.Authenticated)
}

func TestIdentityNoSecretConfigured(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/items", nil)
	r.Header.Set("Authorization", "Bearer "+signedToken(t, identitySecret, "worker-42"))

	id := IdentityFromRequest(r, "203.0.113.9", "")

	assert.Equal(t, "ip:203.0.113.9", id.Key)
}

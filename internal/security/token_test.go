package security

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user_1", "sess_1", "dev_1", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
	assert.Equal(t, "sess_1", claims.SessionID)
	assert.Equal(t, "dev_1", claims.DeviceID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user_1", "sess_1", "dev_1", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user_1", "sess_1", "dev_1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "secret")
	assert.Error(t, err)
}

func TestRefreshTokenHashMatches(t *testing.T) {
	token, hash, err := GenerateRefreshToken(64)
	require.NoError(t, err)
	assert.Equal(t, hash, HashRefreshToken(token))
}

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"title":"Beach Day"}`)
	req := httptest.NewRequest("POST", "/api/v1/vaults?theme=ocean", bytes.NewReader(body))
	sig := SignRequest("secret", "dev_1", req, body, "2026-01-01T00:00:00Z", "nonce-1")

	assert.True(t, VerifyRequest("secret", "dev_1", sig, req, body, "2026-01-01T00:00:00Z", "nonce-1"))
	assert.False(t, VerifyRequest("secret", "dev_1", sig, req, []byte("tampered"), "2026-01-01T00:00:00Z", "nonce-1"))
	assert.False(t, VerifyRequest("other", "dev_1", sig, req, body, "2026-01-01T00:00:00Z", "nonce-1"))

	otherDevice := SignRequest("secret", "dev_2", req, body, "2026-01-01T00:00:00Z", "nonce-1")
	assert.NotEqual(t, sig, otherDevice)
}

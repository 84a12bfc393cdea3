package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidate(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign("u1", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.DisplayName)
}

func TestValidate_BearerPrefixStripped(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Sign("u1", "alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Sign("u1", "alice", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Sign("u1", "alice", -time.Minute)
	require.NoError(t, err)

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Empty(t *testing.T) {
	_, err := NewVerifier("test-secret").Validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken_QueryParamWins(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/campaigns/42?token=query-token", nil)
	r.Header.Set("Authorization", "Bearer header-token")

	assert.Equal(t, "query-token", ExtractToken(r))
}

func TestExtractToken_HeaderFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/monsters", nil)
	r.Header.Set("Authorization", "Bearer header-token")

	assert.Equal(t, "header-token", ExtractToken(r))
}

func TestExtractToken_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/monsters", nil)
	assert.Empty(t, ExtractToken(r))
}

package httpapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sign creates a token with arbitrary claims and method, bypassing Issue
func sign(t *testing.T, method jwt.SigningMethod, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens := NewTokens("test-secret", 0)

	token, expiresAt, err := tokens.Issue("test-client", false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, time.Minute)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "test-client", claims.ClientID())
	assert.False(t, claims.Admin)
	assert.Equal(t, TokenIssuer, claims.Issuer)
}

func TestTokens_AdminAndBearer(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	token, expiresAt, err := tokens.Issue("ops", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tokens.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestTokens_Rejections(t *testing.T) {
	tokens := NewTokens("test-secret", 0)
	valid := func() *Claims {
		return &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   "client",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
	}

	t.Run("empty client id", func(t *testing.T) {
		_, _, err := tokens.Issue("", false)
		assert.ErrorIs(t, err, ErrEmptyClientID)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := tokens.Verify("Bearer ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewTokens("other-secret", 0).Issue("client", true)
		require.NoError(t, err)
		_, err = tokens.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := valid()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := tokens.Verify(sign(t, jwt.SigningMethodHS256, "test-secret", claims))
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("no expiry", func(t *testing.T) {
		claims := valid()
		claims.ExpiresAt = nil
		_, err := tokens.Verify(sign(t, jwt.SigningMethodHS256, "test-secret", claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := valid()
		claims.Issuer = "eventmesh"
		_, err := tokens.Verify(sign(t, jwt.SigningMethodHS256, "test-secret", claims))
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("no subject", func(t *testing.T) {
		claims := valid()
		claims.Subject = ""
		_, err := tokens.Verify(sign(t, jwt.SigningMethodHS256, "test-secret", claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		_, err := tokens.Verify(sign(t, jwt.SigningMethodHS512, "test-secret", valid()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

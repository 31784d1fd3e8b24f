package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/common"
)

func TestGenerateToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	tok, err := GenerateToken(42, secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	uid, err := GetUserIDFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken(42, []byte("right"), time.Hour)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := GenerateToken(42, secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestGetUserIDFromToken_Garbage(t *testing.T) {
	_, err := GetUserIDFromToken("definitely.not.a.jwt", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorInvalidToken)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	secret := []byte("test-secret")

	a, err := GenerateToken(1, secret, time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(1, secret, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(a, claims, func(t *jwt.Token) (interface{}, error) { return secret, nil })
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

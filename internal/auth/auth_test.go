package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewKeysFromPair(private)
}

func TestTokenRoundTrip(t *testing.T) {
	keys := testKeys(t)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "storefront-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: []string{RoleAdmin},
	}

	token, err := keys.GenerateToken(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := keys.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.Subject)
	assert.True(t, got.HasRole(RoleAdmin))
	assert.False(t, got.HasRole(RoleUser))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	keys := testKeys(t)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}

	token, err := keys.GenerateToken(claims)
	require.NoError(t, err)

	_, err = keys.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	signer := testKeys(t)
	verifier := testKeys(t)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := signer.GenerateToken(claims)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresPrivateKey(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := &Keys{publicKey: &private.PublicKey}
	_, err = keys.GenerateToken(Claims{})
	assert.Error(t, err)
}

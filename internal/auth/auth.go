package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is used by the authentication middleware to stash verified
// claims in the request context.
const ClaimsKey ctxKey = 1

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Claims are the JWT claims issued for store owners and shoppers.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// HasRole reports whether the token carries the given role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Keys holds the RSA key pair used to sign and verify tokens.
// The private key may be nil on services that only verify.
type Keys struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewKeys(privatePEM, publicPEM []byte) (*Keys, error) {
	if len(publicPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	k := Keys{publicKey: publicKey}
	if len(privatePEM) > 0 {
		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		k.privateKey = privateKey
	}
	return &k, nil
}

// NewKeysFromPair builds Keys directly from an in-memory key pair, used in tests.
func NewKeysFromPair(private *rsa.PrivateKey) *Keys {
	return &Keys{privateKey: private, publicKey: &private.PublicKey}
}

// GenerateToken signs the claims with RS256.
func (k *Keys) GenerateToken(claims Claims) (string, error) {
	if k.privateKey == nil {
		return "", errors.New("private key not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(k.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a signed token and returns its claims.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}

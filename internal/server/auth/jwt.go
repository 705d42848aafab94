package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
)

// Claims carries the standard claims used by the allowlist:
// sub (owner), jti (token id), aud (client user agent), exp and iat.
type Claims struct {
	jwt.RegisteredClaims
}

// OwnerID returns the subject claim.
func (c *Claims) OwnerID() string { return c.Subject }

// TokenID returns the jti claim.
func (c *Claims) TokenID() string { return c.ID }

// Audience returns the first audience entry or "".
func (c *Claims) Audience() string {
	if len(c.RegisteredClaims.Audience) == 0 {
		return ""
	}
	return c.RegisteredClaims.Audience[0]
}

// Expiry returns the exp claim or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// GenerateToken signs an HS256 token for ownerID with the given jti.
// The returned expiry is truncated to seconds, as stored in the token.
func GenerateToken(ownerID, tokenID, audience string, secretKey []byte, issuedAt time.Time, validityDuration time.Duration) (string, time.Time, error) {
	expiresAt := issuedAt.Add(validityDuration).Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if audience != "" {
		claims.RegisteredClaims.Audience = jwt.ClaimStrings{audience}
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken verifies the signature and expiry of tokenString.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

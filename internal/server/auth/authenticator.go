package auth

import (
	"context"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
)

// Authenticator verifies bearer tokens for the HTTP and gRPC surfaces:
// signature and expiry first, then the revocation strategy.
type Authenticator struct {
	secretKey []byte
	strategy  revocation.Strategy
	now       func() time.Time
}

func NewAuthenticator(secretKey string, strategy revocation.Strategy) *Authenticator {
	return &Authenticator{secretKey: []byte(secretKey), strategy: strategy, now: time.Now}
}

// Authenticate returns the claims of an allowlisted token. Every failure is
// reported as common.ErrorUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := ParseToken(tokenString, a.secretKey)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	if !a.strategy.IsAllowlisted(ctx, claims.OwnerID(), claims.TokenID(), a.now()) {
		return nil, common.ErrorUnauthorized
	}
	return claims, nil
}

// AuthenticateHeader parses an "Authorization: Bearer <jwt>" value and
// authenticates the token.
func (a *Authenticator) AuthenticateHeader(ctx context.Context, header string) (*Claims, error) {
	tokenString, err := common.ParseBearer(header)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return a.Authenticate(ctx, tokenString)
}

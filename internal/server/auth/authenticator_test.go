package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
)

func newAuthenticator(t *testing.T) (*Authenticator, *revocation.AllowlistStrategy) {
	t.Helper()
	strategy := revocation.NewAllowlistStrategy(allowlist.NewMemoryRepository(), logging.Nop(), nil)
	return NewAuthenticator("secret", strategy), strategy
}

func TestAuthenticate_AllowlistedToken(t *testing.T) {
	a, strategy := newAuthenticator(t)
	ctx := context.Background()

	tok, exp, err := GenerateToken("42", "abc123", "", []byte("secret"), time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if err := strategy.OnIssue(ctx, "42", "abc123", exp, ""); err != nil {
		t.Fatalf("OnIssue error: %v", err)
	}

	claims, err := a.AuthenticateHeader(ctx, "Bearer "+tok)
	if err != nil {
		t.Fatalf("AuthenticateHeader error: %v", err)
	}
	if claims.OwnerID() != "42" || claims.TokenID() != "abc123" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := strategy.OnRevoke(ctx, "42", "abc123"); err != nil {
		t.Fatalf("OnRevoke error: %v", err)
	}
	if _, err := a.Authenticate(ctx, tok); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("revoked token: want ErrorUnauthorized, got %v", err)
	}
}

func TestAuthenticate_ValidSignatureButNotAllowlisted(t *testing.T) {
	a, _ := newAuthenticator(t)

	tok, _, err := GenerateToken("42", "never-issued", "", []byte("secret"), time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, err := a.Authenticate(context.Background(), tok); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestAuthenticateHeader_Malformed(t *testing.T) {
	a, _ := newAuthenticator(t)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer not.a.jwt"} {
		if _, err := a.AuthenticateHeader(context.Background(), h); !errors.Is(err, common.ErrorUnauthorized) {
			t.Fatalf("%q: want ErrorUnauthorized, got %v", h, err)
		}
	}
}

package models

import "time"

// AllowlistedToken is one issued, not yet revoked token.
//
// A token is active only while ExpiresAt is in the future; expired rows may
// still be stored until they are purged.
type AllowlistedToken struct {
	TokenID   string    `json:"jti"`
	OwnerID   string    `json:"user_id"`
	ExpiresAt time.Time `json:"exp"`
	Audience  string    `json:"aud"`
}

// ActiveAt reports whether the token is still valid at now.
func (t *AllowlistedToken) ActiveAt(now time.Time) bool {
	return t.ExpiresAt.After(now)
}

// Info strips the owner, which callers already know.
func (t *AllowlistedToken) Info() TokenInfo {
	return TokenInfo{TokenID: t.TokenID, ExpiresAt: t.ExpiresAt, UserAgent: t.Audience}
}

// TokenInfo is the account-facing view of an allowlisted token.
type TokenInfo struct {
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
}

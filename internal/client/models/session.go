// Package models holds the client-side view of the server's resources.
package models

import "time"

// Session is the signed-in state kept between jwtctl runs.
type Session struct {
	Email       string
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
}

// Expired reports whether the access token is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Token is a freshly issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	TokenID     string    `json:"jti"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenInfo describes one active token of the account.
type TokenInfo struct {
	TokenID   string
	ExpiresAt time.Time
	UserAgent string
}

// Profile is the account as reported by the server.
type Profile struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	SignInCount     int        `json:"sign_in_count"`
	CurrentSignInAt *time.Time `json:"current_sign_in_at"`
	LastSignInAt    *time.Time `json:"last_sign_in_at"`
	CurrentSignInIP string     `json:"current_sign_in_ip"`
	LastSignInIP    string     `json:"last_sign_in_ip"`
}

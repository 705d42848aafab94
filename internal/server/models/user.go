package models

import "time"

// User is an account that tokens are issued to.
//
// The sign-in fields are tracked on every successful sign-in: the previous
// "current" values move to the "last" ones.
type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	StripeCustomerID string
	SignInCount      int
	CurrentSignInAt  *time.Time
	LastSignInAt     *time.Time
	CurrentSignInIP  string
	LastSignInIP     string
	CreatedAt        time.Time
}

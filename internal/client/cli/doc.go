// Package cli implements the interactive jwtctl shell: sign up, sign in,
// inspect and revoke the account's tokens.
package cli

// Package allowlist declares the storage contract for allowlisted JWT ids
// and provides PostgreSQL, Redis and in-memory implementations.
package allowlist

import (
	"context"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

// Repository stores issued-and-not-revoked token ids.
//
// Token ids are unique across the whole store, not only per owner. Every
// lookup is scoped to an owner, so a token held by someone else is simply
// not found.
type Repository interface {
	// Put stores a new token. Re-putting a token id already held by the same
	// owner is a successful no-op (the first write wins). A token id held by a
	// different owner yields common.ErrDuplicateTokenID.
	Put(ctx context.Context, token *models.AllowlistedToken) error

	// Get returns the token regardless of its expiry, or common.ErrorNotFound.
	Get(ctx context.Context, ownerID, tokenID string) (*models.AllowlistedToken, error)

	// ListActive returns the owner's tokens with ExpiresAt after now, in no
	// particular order. An owner without tokens gets an empty slice.
	ListActive(ctx context.Context, ownerID string, now time.Time) ([]models.AllowlistedToken, error)

	// Delete removes exactly one token, or returns common.ErrorNotFound.
	Delete(ctx context.Context, ownerID, tokenID string) error

	// DeleteAll removes every token of the owner. Zero rows is not an error.
	DeleteAll(ctx context.Context, ownerID string) error

	// PurgeExpired physically removes tokens with ExpiresAt at or before
	// before and returns what was removed.
	PurgeExpired(ctx context.Context, before time.Time) ([]models.AllowlistedToken, error)
}

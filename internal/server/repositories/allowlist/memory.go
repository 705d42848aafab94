package allowlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

// MemoryRepository is a process-local Repository. It is the reference
// implementation the shared repository tests run against and backs the
// service and HTTP tests; the server itself uses Postgres or Redis.
type MemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]models.AllowlistedToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]models.AllowlistedToken)}
}

func (r *MemoryRepository) Put(_ context.Context, token *models.AllowlistedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tokens[token.TokenID]; ok {
		if existing.OwnerID != token.OwnerID {
			return fmt.Errorf("jti %s: %w", token.TokenID, common.ErrDuplicateTokenID)
		}
		return nil
	}
	r.tokens[token.TokenID] = *token
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, ownerID, tokenID string) (*models.AllowlistedToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[tokenID]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) ListActive(_ context.Context, ownerID string, now time.Time) ([]models.AllowlistedToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]models.AllowlistedToken, 0)
	for _, t := range r.tokens {
		if t.OwnerID == ownerID && t.ActiveAt(now) {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

func (r *MemoryRepository) Delete(_ context.Context, ownerID, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenID]
	if !ok || t.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.tokens, tokenID)
	return nil
}

func (r *MemoryRepository) DeleteAll(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tokens {
		if t.OwnerID == ownerID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *MemoryRepository) PurgeExpired(_ context.Context, before time.Time) ([]models.AllowlistedToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged := make([]models.AllowlistedToken, 0)
	for id, t := range r.tokens {
		if !t.ExpiresAt.After(before) {
			purged = append(purged, t)
			delete(r.tokens, id)
		}
	}
	return purged, nil
}

// Len returns the number of stored rows, expired ones included.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

var _ Repository = (*MemoryRepository)(nil)

package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
)

// AccountService exposes a user's allowlisted tokens as account actions:
// inspect one, list the active ones, revoke one or all.
type AccountService struct {
	store    allowlist.Repository
	strategy revocation.Strategy
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewAccountService(store allowlist.Repository, strategy revocation.Strategy, m metrics.Recorder) *AccountService {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &AccountService{store: store, strategy: strategy, metrics: m, now: time.Now}
}

// GetToken returns the owner's token whether or not it has expired.
func (s *AccountService) GetToken(ctx context.Context, ownerID, tokenID string) (*models.TokenInfo, error) {
	t, err := s.store.Get(ctx, ownerID, tokenID)
	if err != nil {
		return nil, err
	}
	info := t.Info()
	return &info, nil
}

// ListActiveTokens never returns nil on success.
func (s *AccountService) ListActiveTokens(ctx context.Context, ownerID string) ([]models.TokenInfo, error) {
	tokens, err := s.store.ListActive(ctx, ownerID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]models.TokenInfo, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Info())
	}
	return out, nil
}

// RevokeToken fails with common.ErrorNotFound unless the owner holds tokenID.
func (s *AccountService) RevokeToken(ctx context.Context, ownerID, tokenID string) error {
	if _, err := s.store.Get(ctx, ownerID, tokenID); err != nil {
		return err
	}
	if err := s.strategy.OnRevoke(ctx, ownerID, tokenID); err != nil {
		return err
	}
	s.metrics.RecordRevocation(metrics.RevokeSingle)
	return nil
}

// RevokeAllTokens succeeds even when the owner has no tokens.
func (s *AccountService) RevokeAllTokens(ctx context.Context, ownerID string) error {
	if err := s.strategy.OnRevokeAll(ctx, ownerID); err != nil {
		return err
	}
	s.metrics.RecordRevocation(metrics.RevokeAll)
	return nil
}

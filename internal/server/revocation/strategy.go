// Package revocation decides whether a presented token is still honoured
// and keeps the allowlist in step with issuance and logout.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
)

// Strategy is what the authentication layer and the token issuer depend on.
type Strategy interface {
	// IsAllowlisted reports whether tokenID is held by ownerID and not yet
	// expired at now. Every failure yields false.
	IsAllowlisted(ctx context.Context, ownerID, tokenID string, now time.Time) bool
	OnIssue(ctx context.Context, ownerID, tokenID string, expiresAt time.Time, audience string) error
	OnRevoke(ctx context.Context, ownerID, tokenID string) error
	OnRevokeAll(ctx context.Context, ownerID string) error
}

// AllowlistStrategy implements Strategy on top of an allowlist.Repository.
type AllowlistStrategy struct {
	repo    allowlist.Repository
	logger  logging.Logger
	metrics metrics.Recorder
}

// NewAllowlistStrategy builds the strategy. A nil recorder disables metrics.
func NewAllowlistStrategy(repo allowlist.Repository, logger logging.Logger, m metrics.Recorder) *AllowlistStrategy {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &AllowlistStrategy{repo: repo, logger: logger.With("module", "revocation"), metrics: m}
}

func (s *AllowlistStrategy) IsAllowlisted(ctx context.Context, ownerID, tokenID string, now time.Time) bool {
	if ownerID == "" || tokenID == "" {
		s.metrics.RecordAllowlistDecision(metrics.DecisionMissing)
		return false
	}

	t, err := s.repo.Get(ctx, ownerID, tokenID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.logger.Debug(ctx, "token not allowlisted", "user_id", ownerID, "jti", tokenID)
		s.metrics.RecordAllowlistDecision(metrics.DecisionMissing)
		return false
	case err != nil:
		s.logger.Warn(ctx, "allowlist lookup failed, denying", "user_id", ownerID, "jti", tokenID, "error", err)
		s.metrics.RecordAllowlistDecision(metrics.DecisionError)
		return false
	case t == nil:
		s.metrics.RecordAllowlistDecision(metrics.DecisionError)
		return false
	case !t.ActiveAt(now):
		s.metrics.RecordAllowlistDecision(metrics.DecisionExpired)
		return false
	}

	s.metrics.RecordAllowlistDecision(metrics.DecisionAllowed)
	return true
}

func (s *AllowlistStrategy) OnIssue(ctx context.Context, ownerID, tokenID string, expiresAt time.Time, audience string) error {
	err := s.repo.Put(ctx, &models.AllowlistedToken{
		TokenID:   tokenID,
		OwnerID:   ownerID,
		ExpiresAt: expiresAt,
		Audience:  audience,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateTokenID) {
			s.logger.Error(ctx, "allowlist integrity violation", "user_id", ownerID, "jti", tokenID, "error", err)
		}
		return fmt.Errorf("allowlist token: %w", err)
	}
	s.metrics.RecordTokenIssued()
	return nil
}

func (s *AllowlistStrategy) OnRevoke(ctx context.Context, ownerID, tokenID string) error {
	return s.repo.Delete(ctx, ownerID, tokenID)
}

func (s *AllowlistStrategy) OnRevokeAll(ctx context.Context, ownerID string) error {
	return s.repo.DeleteAll(ctx, ownerID)
}

var _ Strategy = (*AllowlistStrategy)(nil)

package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/billing"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/config"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/repomanager"
)

// BillingService passes subscription requests through to the billing
// provider on behalf of a local user. Provider failures surface as
// common.ErrUpstreamUnavailable and are never retried.
type BillingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    billing.Provider
	logger      logging.Logger
	metrics     metrics.Recorder

	successURL string
	cancelURL  string
	returnURL  string
}

// NewBillingService wires a provider. A nil provider leaves billing
// disabled: registration skips customer creation and every billing call
// fails with common.ErrUpstreamUnavailable.
func NewBillingService(db *sql.DB, m repomanager.RepositoryManager, provider billing.Provider, logger logging.Logger, rec metrics.Recorder, cfg *config.Config) *BillingService {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}
	return &BillingService{
		db:          db,
		repomanager: m,
		provider:    provider,
		logger:      logger.With("module", "billing"),
		metrics:     rec,
		successURL:  cfg.CheckoutSuccessURL,
		cancelURL:   cfg.CheckoutCancelURL,
		returnURL:   cfg.PortalReturnURL,
	}
}

// Enabled reports whether a provider is configured.
func (s *BillingService) Enabled() bool {
	return s.provider != nil
}

// CreateCustomer registers userID with the provider and returns the
// customer id.
func (s *BillingService) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	var id string
	err := s.call(ctx, "create_customer", func() (err error) {
		id, err = s.provider.CreateCustomer(ctx, email, userID)
		return err
	}, "user_id", userID)
	return id, err
}

// HasActiveSubscription is true when any of the customer's subscriptions
// is active or trialing.
func (s *BillingService) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return false, err
	}

	var statuses []string
	err = s.call(ctx, "list_subscriptions", func() (err error) {
		statuses, err = s.provider.ListSubscriptionStatuses(ctx, customerID)
		return err
	}, "user_id", userID)
	if err != nil {
		return false, err
	}

	for _, st := range statuses {
		if billing.IsActiveStatus(st) {
			return true, nil
		}
	}
	return false, nil
}

// CreateCheckoutSession returns the hosted checkout URL for one unit of
// priceID in subscription mode.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return "", fmt.Errorf("%w: price_id is required", common.ErrorValidation)
	}
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return "", err
	}

	var url string
	err = s.call(ctx, "create_checkout_session", func() (err error) {
		url, err = s.provider.CreateCheckoutSession(ctx, customerID, priceID, s.successURL, s.cancelURL)
		return err
	}, "user_id", userID, "price_id", priceID)
	return url, err
}

// CreatePortalSession returns the customer portal URL.
func (s *BillingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return "", err
	}

	var url string
	err = s.call(ctx, "create_portal_session", func() (err error) {
		url, err = s.provider.CreatePortalSession(ctx, customerID, s.returnURL)
		return err
	}, "user_id", userID)
	return url, err
}

func (s *BillingService) customerID(ctx context.Context, userID string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("%w: billing is not configured", common.ErrUpstreamUnavailable)
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", common.ErrBillingCustomerMissing
	}
	return user.StripeCustomerID, nil
}

func (s *BillingService) call(ctx context.Context, op string, fn func() error, args ...any) error {
	if !s.Enabled() {
		return fmt.Errorf("%w: billing is not configured", common.ErrUpstreamUnavailable)
	}

	start := time.Now()
	err := fn()
	s.metrics.RecordBillingCall(op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error(ctx, "billing call failed", append([]any{"operation", op, "error", err}, args...)...)
		return fmt.Errorf("%w: %s: %v", common.ErrUpstreamUnavailable, op, err)
	}
	return nil
}

// Package services contains server-side business logic. This file implements
// UserService, which handles registration, sign-in and the lifecycle of the
// JWTs issued to an account.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/dbx"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/config"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit
)

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
}

// UserService provides account operations:
// - Register: create the user and its billing customer
// - SignIn / Refresh / SignOut: mint, rotate and revoke allowlisted JWTs
// - Profile / DeleteAccount
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	strategy                    revocation.Strategy
	billing                     *BillingService
	logger                      logging.Logger
	metrics                     metrics.Recorder
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	minPasswordScore            int
	bcryptCost                  int
	dummyHash                   []byte
	now                         func() time.Time
	newTokenID                  func() string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, strategy revocation.Strategy, billing *BillingService,
	logger logging.Logger, rec metrics.Recorder, cfg *config.Config) *UserService {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}
	s := &UserService{
		db:                          db,
		repomanager:                 m,
		strategy:                    strategy,
		billing:                     billing,
		logger:                      logger.With("module", "users"),
		metrics:                     rec,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		minPasswordScore:            cfg.MinPasswordScore,
		bcryptCost:                  bcrypt.DefaultCost,
		now:                         time.Now,
		newTokenID:                  uuid.NewString,
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	return s
}

// Register validates the credentials and creates the user. When billing is
// enabled the billing customer is created inside the same transaction, so a
// provider failure leaves no user behind.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if err != nil {
			return err
		}

		if s.billing != nil && s.billing.Enabled() {
			customerID, err := s.billing.CreateCustomer(ctx, email, u.ID)
			if err != nil {
				return err
			}
			if err := repo.SetStripeCustomerID(ctx, u.ID, customerID); err != nil {
				return err
			}
			u.StripeCustomerID = customerID
		}

		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) validateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is invalid", common.ErrorValidation)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be %d to %d characters", common.ErrorValidation, minPasswordLength, maxPasswordLength)
	}
	if s.minPasswordScore > 0 {
		if zxcvbn.PasswordStrength(password, []string{email}).Score < s.minPasswordScore {
			return common.ErrWeakPassword
		}
	}
	return nil
}

// SignIn verifies the credentials, records the sign-in and issues a token
// whose audience is the client's user agent.
func (s *UserService) SignIn(ctx context.Context, email, password, audience, ip string) (*IssuedToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same cost as a real comparison so timing does not reveal the account
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	if _, err := repo.RecordSignIn(ctx, user.ID, ip, s.now()); err != nil {
		return nil, err
	}

	return s.issue(ctx, user.ID, audience)
}

// Refresh issues a new token and revokes the presented one. If the old
// token is already gone the new one is withdrawn and ErrorUnauthorized
// returned.
func (s *UserService) Refresh(ctx context.Context, ownerID, tokenID, audience string) (*IssuedToken, error) {
	issued, err := s.issue(ctx, ownerID, audience)
	if err != nil {
		return nil, err
	}

	if err := s.strategy.OnRevoke(ctx, ownerID, tokenID); err != nil {
		if rbErr := s.strategy.OnRevoke(ctx, ownerID, issued.TokenID); rbErr != nil {
			s.logger.Warn(ctx, "withdraw refreshed token failed", "user_id", ownerID, "jti", issued.TokenID, "error", rbErr)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	s.metrics.RecordRevocation(metrics.RevokeRefresh)
	return issued, nil
}

// SignOut revokes the presented token.
func (s *UserService) SignOut(ctx context.Context, ownerID, tokenID string) error {
	if err := s.strategy.OnRevoke(ctx, ownerID, tokenID); err != nil {
		return err
	}
	s.metrics.RecordRevocation(metrics.RevokeSignOut)
	return nil
}

// Profile returns the stored user.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// DeleteAccount revokes every token of the user and deletes the account.
// Tokens a concurrent sign-in allowlisted in between are swept by a second
// revoke-all once the user row is gone. Postgres would cascade them, Redis
// has no foreign keys.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.strategy.OnRevokeAll(ctx, userID); err != nil {
		return err
	}
	s.metrics.RecordRevocation(metrics.RevokeAll)

	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", userID)

	if err := s.strategy.OnRevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("sweep tokens of deleted user: %w", err)
	}
	return nil
}

func (s *UserService) issue(ctx context.Context, ownerID, audience string) (*IssuedToken, error) {
	tokenID := s.newTokenID()

	access, expiresAt, err := auth.GenerateToken(ownerID, tokenID, audience, s.jwtSecret, s.now(), s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}

	if err := s.strategy.OnIssue(ctx, ownerID, tokenID, expiresAt, audience); err != nil {
		return nil, err
	}

	return &IssuedToken{AccessToken: access, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

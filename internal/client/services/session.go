// Package services contains the jwtctl use cases: signing in and out and
// managing the account's active tokens.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/client"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/repositories/session"
)

var ErrNotSignedIn = errors.New("not signed in")

// SessionService keeps the local session in step with the server. When the
// server rejects the stored token the local session is dropped.
type SessionService struct {
	client client.Client
	store  session.Repository
	now    func() time.Time
}

func NewSessionService(c client.Client, store session.Repository) *SessionService {
	return &SessionService{client: c, store: store, now: time.Now}
}

func (s *SessionService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *SessionService) Register(ctx context.Context, email string, password []byte) error {
	return s.client.Register(ctx, strings.TrimSpace(email), string(password))
}

// Login signs in and stores the new session, replacing any previous one.
func (s *SessionService) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	email = strings.TrimSpace(email)

	tok, err := s.client.SignIn(ctx, email, string(password))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, email, tok)
}

// Current returns the stored session or ErrNotSignedIn. An expired session
// is dropped.
func (s *SessionService) Current(ctx context.Context) (*models.Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	if sess.Expired(s.now()) {
		if err := s.store.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNotSignedIn
	}
	return sess, nil
}

// Logout revokes the current token and forgets the session. A token the
// server already rejects still counts as logged out.
func (s *SessionService) Logout(ctx context.Context) error {
	sess, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.client.SignOut(ctx, sess.AccessToken); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return s.store.Clear(ctx)
}

// Refresh swaps the current token for a new one.
func (s *SessionService) Refresh(ctx context.Context) (*models.Session, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := s.client.Refresh(ctx, sess.AccessToken)
	if err != nil {
		return nil, s.dropIfRejected(ctx, err)
	}
	return s.save(ctx, sess.Email, tok)
}

func (s *SessionService) Whoami(ctx context.Context) (*models.Profile, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.client.Profile(ctx, sess.AccessToken)
	if err != nil {
		return nil, s.dropIfRejected(ctx, err)
	}
	return p, nil
}

// Tokens lists the account's active tokens.
func (s *SessionService) Tokens(ctx context.Context) ([]models.TokenInfo, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := s.client.ListTokens(ctx, sess.AccessToken)
	if err != nil {
		return nil, s.dropIfRejected(ctx, err)
	}
	return tokens, nil
}

// Revoke revokes one token. Revoking the current token ends the session.
func (s *SessionService) Revoke(ctx context.Context, tokenID string) error {
	sess, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.client.RevokeToken(ctx, sess.AccessToken, tokenID); err != nil {
		return s.dropIfRejected(ctx, err)
	}
	if tokenID == sess.TokenID {
		return s.store.Clear(ctx)
	}
	return nil
}

// RevokeAll signs the account out everywhere, including here.
func (s *SessionService) RevokeAll(ctx context.Context) error {
	sess, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.client.RevokeAllTokens(ctx, sess.AccessToken); err != nil {
		return s.dropIfRejected(ctx, err)
	}
	return s.store.Clear(ctx)
}

func (s *SessionService) save(ctx context.Context, email string, tok *models.Token) (*models.Session, error) {
	sess := &models.Session{
		Email:       email,
		AccessToken: tok.AccessToken,
		TokenID:     tok.TokenID,
		ExpiresAt:   tok.ExpiresAt,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) dropIfRejected(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			return errors.Join(err, clearErr)
		}
	}
	return err
}

// Package session persists the client's current sign-in.
package session

import (
	"context"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
)

// Repository keeps at most one session. Load returns (nil, nil) when
// nobody is signed in.
type Repository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}

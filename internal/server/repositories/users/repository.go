package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	RecordSignIn(ctx context.Context, id, ip string, at time.Time) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

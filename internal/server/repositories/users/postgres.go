package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/dbx"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

const userColumns = `id, email, password_hash, stripe_customer_id, sign_in_count,
		 current_sign_in_at, last_sign_in_at, current_sign_in_ip, last_sign_in_ip, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		user              models.User
		current, previous sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.StripeCustomerID, &user.SignInCount,
		&current, &previous, &user.CurrentSignInIP, &user.LastSignInIP, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if current.Valid {
		user.CurrentSignInAt = &current.Time
	}
	if previous.Valid {
		user.LastSignInAt = &previous.Time
	}
	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email %s: %w", user.Email, common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + `
		 FROM users
		 WHERE email = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	query :=
		`UPDATE users SET stripe_customer_id = $2
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id, customerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

// RecordSignIn shifts the current sign-in fields into the last ones and
// stores the new sign-in.
func (r *PostgresRepository) RecordSignIn(ctx context.Context, id, ip string, at time.Time) (*models.User, error) {
	query :=
		`UPDATE users SET
		   last_sign_in_at = current_sign_in_at,
		   last_sign_in_ip = current_sign_in_ip,
		   current_sign_in_at = $2,
		   current_sign_in_ip = $3,
		   sign_in_count = sign_in_count + 1
		 WHERE id = $1
		 RETURNING ` + userColumns + `
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id, at, ip))
}

// Delete removes the user row. Allowlisted tokens go with it through the
// foreign key cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)

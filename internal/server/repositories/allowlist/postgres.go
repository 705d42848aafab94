package allowlist

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

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx) using the allowlisted_jwts table.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put inserts the token. On a jti conflict the current holder decides the
// outcome: the same owner means success, another owner ErrDuplicateTokenID.
func (r *PostgresRepository) Put(ctx context.Context, token *models.AllowlistedToken) error {
	query := `
		INSERT INTO allowlisted_jwts (jti, user_id, exp, aud)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, token.TokenID, token.OwnerID, token.ExpiresAt, token.Audience)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return fmt.Errorf("owner %s: %w", token.OwnerID, common.ErrorNotFound)
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 1 {
		return nil
	}

	holder, err := r.holder(ctx, token.TokenID)
	if err != nil {
		return err
	}
	if holder != token.OwnerID {
		return fmt.Errorf("jti %s: %w", token.TokenID, common.ErrDuplicateTokenID)
	}
	return nil
}

func (r *PostgresRepository) holder(ctx context.Context, tokenID string) (string, error) {
	query := `
		SELECT user_id
		FROM allowlisted_jwts
		WHERE jti = $1
	`
	var ownerID string
	if err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// the conflicting row vanished between the two statements
			return "", fmt.Errorf("jti %s changed concurrently: %w", tokenID, common.ErrDuplicateTokenID)
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return ownerID, nil
}

// Get returns the owner's token with the given jti.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, tokenID string) (*models.AllowlistedToken, error) {
	query := `
		SELECT jti, user_id, exp, aud
		FROM allowlisted_jwts
		WHERE user_id = $1 AND jti = $2
	`
	t := &models.AllowlistedToken{}
	if err := r.db.QueryRowContext(ctx, query, ownerID, tokenID).Scan(&t.TokenID, &t.OwnerID, &t.ExpiresAt, &t.Audience); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// ListActive returns the owner's tokens that expire after now.
func (r *PostgresRepository) ListActive(ctx context.Context, ownerID string, now time.Time) ([]models.AllowlistedToken, error) {
	query := `
		SELECT jti, user_id, exp, aud
		FROM allowlisted_jwts
		WHERE user_id = $1 AND exp > $2
	`
	return r.query(ctx, query, ownerID, now)
}

// Delete removes one token of the owner.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, tokenID string) error {
	query := `
		DELETE FROM allowlisted_jwts
		WHERE user_id = $1 AND jti = $2
	`
	res, err := r.db.ExecContext(ctx, query, ownerID, tokenID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteAll removes every token of the owner.
func (r *PostgresRepository) DeleteAll(ctx context.Context, ownerID string) error {
	query := `
		DELETE FROM allowlisted_jwts
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows expired at or before before and returns them.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, before time.Time) ([]models.AllowlistedToken, error) {
	query := `
		DELETE FROM allowlisted_jwts
		WHERE exp <= $1
		RETURNING jti, user_id, exp, aud
	`
	return r.query(ctx, query, before)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]models.AllowlistedToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tokens := make([]models.AllowlistedToken, 0)
	for rows.Next() {
		var t models.AllowlistedToken
		if err := rows.Scan(&t.TokenID, &t.OwnerID, &t.ExpiresAt, &t.Audience); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

var _ Repository = (*PostgresRepository)(nil)

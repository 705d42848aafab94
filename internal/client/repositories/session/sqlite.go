package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	var (
		s         models.Session
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, access_token, jti, expires_at FROM session WHERE id = 1`,
	).Scan(&s.Email, &s.AccessToken, &s.TokenID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}

// Save replaces the stored session.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (id, email, access_token, jti, expires_at, saved_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			access_token = excluded.access_token,
			jti = excluded.jti,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at
	`, s.Email, s.AccessToken, s.TokenID, s.ExpiresAt.Unix(), r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

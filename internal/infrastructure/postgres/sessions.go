package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type SessionRepo struct {
	db DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	query :=
		`INSERT INTO sessions (session_id, identity_id, enable, refresh_token, refresh_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO UPDATE SET
		   enable = EXCLUDED.enable,
		   refresh_token = EXCLUDED.refresh_token,
		   refresh_expires_at = EXCLUDED.refresh_expires_at,
		   updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		s.SessionID, s.IdentityID, s.Enable, s.RefreshToken, s.RefreshExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const sessionColumns = `session_id, identity_id, enable, refresh_token, refresh_expires_at, created_at, updated_at`

func (r *SessionRepo) scanOne(ctx context.Context, where, arg string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+where+` = $1`, arg).
		Scan(&s.SessionID, &s.IdentityID, &s.Enable, &s.RefreshToken, &s.RefreshExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return r.scanOne(ctx, "session_id", sessionID)
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	s, err := r.scanOne(ctx, "refresh_token", token)
	if err != nil {
		return nil, err
	}
	if !s.Enable {
		return nil, fmt.Errorf("session disabled: %w", domain.ErrUnauthorized)
	}
	return s, nil
}

func (r *SessionRepo) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	query :=
		`UPDATE sessions SET refresh_token = $2, refresh_expires_at = $3, updated_at = $4
		 WHERE session_id = $1`

	res, err := r.db.ExecContext(ctx, query, sessionID, newToken, newExpiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

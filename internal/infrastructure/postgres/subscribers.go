package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type SubscriberRepo struct {
	db DBTX
}

func NewSubscriberRepo(db DBTX) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

func (r *SubscriberRepo) Get(ctx context.Context, email string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := r.db.QueryRowContext(ctx,
		`SELECT email, is_active, created_at, updated_at FROM newsletter_subscribers WHERE email = $1`, email).
		Scan(&s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscriber not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

// Upsert keeps created_at from the first insert.
func (r *SubscriberRepo) Upsert(ctx context.Context, s *domain.Subscriber) error {
	query :=
		`INSERT INTO newsletter_subscribers (email, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, s.Email, s.IsActive, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) Deactivate(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_active = FALSE, updated_at = $2 WHERE email = $1`,
		email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

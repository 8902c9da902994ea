package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type IdentityRepo struct {
	db DBTX
}

func NewIdentityRepo(db DBTX) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) Create(ctx context.Context, i *domain.Identity) error {
	query :=
		`INSERT INTO identities (identity_id, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, i.IdentityID, i.Email, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("identity already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *IdentityRepo) Get(ctx context.Context, identityID string) (*domain.Identity, error) {
	return r.getBy(ctx, "identity_id", identityID)
}

func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getBy(ctx, "email", email)
}

func (r *IdentityRepo) getBy(ctx context.Context, column, value string) (*domain.Identity, error) {
	query := `SELECT identity_id, email, email_confirmed_at, last_sign_in_at, created_at, updated_at
		 FROM identities WHERE ` + column + ` = $1`

	var (
		i         domain.Identity
		confirmed sql.NullTime
		signedIn  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&i.IdentityID, &i.Email, &confirmed, &signedIn, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	i.EmailConfirmedAt = timePtr(confirmed)
	i.LastSignInAt = timePtr(signedIn)
	return &i, nil
}

func (r *IdentityRepo) MarkSignedIn(ctx context.Context, identityID string, at time.Time) error {
	query :=
		`UPDATE identities
		 SET last_sign_in_at = $2, updated_at = $2, email_confirmed_at = COALESCE(email_confirmed_at, $2)
		 WHERE identity_id = $1`

	res, err := r.db.ExecContext(ctx, query, identityID, at.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return nil
}

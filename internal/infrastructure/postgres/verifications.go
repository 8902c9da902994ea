package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-waitlist-api/internal/domain"
)

type VerificationRepo struct {
	db DBTX
}

func NewVerificationRepo(db DBTX) *VerificationRepo {
	return &VerificationRepo{db: db}
}

// Put replaces any pending verification of the same subject and type.
func (r *VerificationRepo) Put(ctx context.Context, v *domain.Verification) error {
	query :=
		`INSERT INTO verifications (subject, type, identity_id, email, code, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subject, type) DO UPDATE SET
		   identity_id = EXCLUDED.identity_id,
		   email = EXCLUDED.email,
		   code = EXCLUDED.code,
		   attempts = 0,
		   expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query, v.Subject, v.Type, v.IdentityID, v.Email, v.Code, v.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, subject, verType string) (*domain.Verification, error) {
	query :=
		`SELECT subject, type, identity_id, email, code, attempts, expires_at
		 FROM verifications WHERE subject = $1 AND type = $2`
	return r.scan(r.db.QueryRowContext(ctx, query, subject, verType))
}

// Consume deletes and returns the row. A second caller sees ErrNotFound.
func (r *VerificationRepo) Consume(ctx context.Context, subject, verType string) (*domain.Verification, error) {
	query :=
		`DELETE FROM verifications WHERE subject = $1 AND type = $2
		 RETURNING subject, type, identity_id, email, code, attempts, expires_at`
	return r.scan(r.db.QueryRowContext(ctx, query, subject, verType))
}

// ConsumeCode deletes the row only while it still holds code.
func (r *VerificationRepo) ConsumeCode(ctx context.Context, subject, verType, code string) (*domain.Verification, error) {
	query :=
		`DELETE FROM verifications WHERE subject = $1 AND type = $2 AND code = $3
		 RETURNING subject, type, identity_id, email, code, attempts, expires_at`
	return r.scan(r.db.QueryRowContext(ctx, query, subject, verType, code))
}

// CountFailure increments attempts on the row holding code and returns the
// new count.
func (r *VerificationRepo) CountFailure(ctx context.Context, subject, verType, code string) (int, error) {
	query :=
		`UPDATE verifications SET attempts = attempts + 1
		 WHERE subject = $1 AND type = $2 AND code = $3
		 RETURNING attempts`
	var n int
	if err := r.db.QueryRowContext(ctx, query, subject, verType, code).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *VerificationRepo) scan(row *sql.Row) (*domain.Verification, error) {
	var v domain.Verification
	if err := row.Scan(&v.Subject, &v.Type, &v.IdentityID, &v.Email, &v.Code, &v.Attempts, &v.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &v, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type EntrantRepo struct {
	db DBTX
}

func NewEntrantRepo(db DBTX) *EntrantRepo {
	return &EntrantRepo{db: db}
}

const entrantColumns = `email, ref_code, referred_by, is_verified, verified_at, user_id, created_at`

func scanEntrant(row interface{ Scan(...any) error }) (*domain.Entrant, error) {
	var (
		e          domain.Entrant
		referredBy sql.NullString
		userID     sql.NullString
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&e.Email, &e.RefCode, &referredBy, &e.IsVerified, &verifiedAt, &userID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ReferredBy = stringPtr(referredBy)
	e.UserID = stringPtr(userID)
	e.VerifiedAt = timePtr(verifiedAt)
	return &e, nil
}

func (r *EntrantRepo) GetByEmail(ctx context.Context, email string) (*domain.Entrant, error) {
	query := `SELECT ` + entrantColumns + ` FROM waitlist WHERE email = $1`
	e, err := scanEntrant(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *EntrantRepo) Create(ctx context.Context, e *domain.Entrant) error {
	query :=
		`INSERT INTO waitlist (email, ref_code, referred_by, is_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, e.Email, e.RefCode, nullString(e.ReferredBy), e.IsVerified, e.CreatedAt)
	if err == nil {
		return nil
	}
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "waitlist_ref_code_key" {
			return domain.ErrRefCodeTaken
		}
		return fmt.Errorf("email already on waitlist: %w", domain.ErrConflict)
	}
	return fmt.Errorf("db error: %w", err)
}

// MarkVerified flips is_verified only while it is still false, so concurrent
// callers see exactly one success.
func (r *EntrantRepo) MarkVerified(ctx context.Context, email, userID string, at time.Time) (bool, error) {
	query :=
		`UPDATE waitlist SET is_verified = TRUE, verified_at = $2, user_id = $3
		 WHERE email = $1 AND is_verified = FALSE`

	res, err := r.db.ExecContext(ctx, query, email, at.UTC(), userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var verified bool
	err = r.db.QueryRowContext(ctx, `SELECT is_verified FROM waitlist WHERE email = $1`, email).Scan(&verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return false, nil
}

func (r *EntrantRepo) CountReferrals(ctx context.Context, refCode string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist WHERE referred_by = $1`, refCode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *EntrantRepo) CountVerifiedBefore(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist WHERE is_verified = TRUE AND created_at < $1`, t).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *EntrantRepo) ListVerified(ctx context.Context) ([]domain.Entrant, error) {
	query := `SELECT ` + entrantColumns + ` FROM waitlist WHERE is_verified = TRUE ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []domain.Entrant
	for rows.Next() {
		e, err := scanEntrant(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *EntrantRepo) ReferralTally(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT referred_by, COUNT(*) FROM waitlist WHERE referred_by IS NOT NULL GROUP BY referred_by`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tally := make(map[string]int)
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tally[code] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tally, nil
}

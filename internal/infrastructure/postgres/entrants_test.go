package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEntrantCreate_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntrantRepo(db)
	ref := "BRAAAA0000"
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+waitlist\s*\(email,\s*ref_code,\s*referred_by,\s*is_verified,\s*created_at\)`).
		WithArgs("a@example.com", "BR1A2B3C4D", ref, false, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Entrant{
		Email: "a@example.com", RefCode: "BR1A2B3C4D", ReferredBy: &ref, CreatedAt: created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntrantCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"duplicate email", "waitlist_pkey", domain.ErrConflict},
		{"duplicate ref code", "waitlist_ref_code_key", domain.ErrRefCodeTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewEntrantRepo(db)
			mock.ExpectExec(`INSERT\s+INTO\s+waitlist`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err := repo.Create(context.Background(), &domain.Entrant{Email: "a@example.com", RefCode: "BR00000000"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEntrantGetByEmail_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntrantRepo(db)
	mock.ExpectQuery(`SELECT .* FROM waitlist WHERE email = \$1`).
		WithArgs("x@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntrantGetByEmail_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntrantRepo(db)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"email", "ref_code", "referred_by", "is_verified", "verified_at", "user_id", "created_at"}).
		AddRow("a@example.com", "BR11111111", nil, false, nil, nil, created)
	mock.ExpectQuery(`SELECT .* FROM waitlist WHERE email = \$1`).WithArgs("a@example.com").WillReturnRows(rows)

	e, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "BR11111111", e.RefCode)
	assert.Nil(t, e.ReferredBy)
	assert.Nil(t, e.VerifiedAt)
	assert.Equal(t, created, e.CreatedAt)
}

func TestEntrantMarkVerified(t *testing.T) {
	update := `(?s)^UPDATE\s+waitlist\s+SET\s+is_verified\s*=\s*TRUE.*WHERE\s+email\s*=\s*\$1\s+AND\s+is_verified\s*=\s*FALSE`
	readBack := `SELECT is_verified FROM waitlist WHERE email = \$1`
	at := time.Now()

	t.Run("flips", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WithArgs("a@example.com", sqlmock.AnyArg(), "uid-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		flipped, err := NewEntrantRepo(db).MarkVerified(context.Background(), "a@example.com", "uid-1", at)
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("already verified", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(readBack).WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"is_verified"}).AddRow(true))

		flipped, err := NewEntrantRepo(db).MarkVerified(context.Background(), "a@example.com", "uid-1", at)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(readBack).WillReturnError(sql.ErrNoRows)

		_, err := NewEntrantRepo(db).MarkVerified(context.Background(), "a@example.com", "uid-1", at)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEntrantReferralTally(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"referred_by", "count"}).
		AddRow("BRAAAAAAAA", 3).
		AddRow("BRBBBBBBBB", 1)
	mock.ExpectQuery(`SELECT referred_by, COUNT\(\*\) FROM waitlist`).WillReturnRows(rows)

	tally, err := NewEntrantRepo(db).ReferralTally(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"BRAAAAAAAA": 3, "BRBBBBBBBB": 1}, tally)
}

func TestEntrantCountVerifiedBefore_DBError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist WHERE is_verified`).WillReturnError(errors.New("db down"))

	_, err := NewEntrantRepo(db).CountVerifiedBefore(context.Background(), time.Now())
	assert.ErrorContains(t, err, "db error: db down")
}

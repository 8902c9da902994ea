package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationConsume(t *testing.T) {
	q := `(?s)^DELETE\s+FROM\s+verifications\s+WHERE\s+subject\s*=\s*\$1\s+AND\s+type\s*=\s*\$2\s+RETURNING`

	t.Run("returns deleted row", func(t *testing.T) {
		db, mock := newMock(t)
		rows := sqlmock.NewRows([]string{"subject", "type", "identity_id", "email", "code", "attempts", "expires_at"}).
			AddRow("hash", domain.VerificationSignup, "id-1", "a@example.com", "", 0, int64(1700000000))
		mock.ExpectQuery(q).WithArgs("hash", domain.VerificationSignup).WillReturnRows(rows)

		v, err := NewVerificationRepo(db).Consume(context.Background(), "hash", domain.VerificationSignup)
		require.NoError(t, err)
		assert.Equal(t, "id-1", v.IdentityID)
		assert.Equal(t, int64(1700000000), v.ExpiresAt)
	})

	t.Run("second consume finds nothing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := NewVerificationRepo(db).Consume(context.Background(), "hash", domain.VerificationSignup)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestVerificationConsumeCode_RequiresMatchingCode(t *testing.T) {
	q := `(?s)^DELETE\s+FROM\s+verifications\s+WHERE\s+subject\s*=\s*\$1\s+AND\s+type\s*=\s*\$2\s+AND\s+code\s*=\s*\$3\s+RETURNING`

	t.Run("matching code deletes", func(t *testing.T) {
		db, mock := newMock(t)
		rows := sqlmock.NewRows([]string{"subject", "type", "identity_id", "email", "code", "attempts", "expires_at"}).
			AddRow("id-1", domain.VerificationOTP, "id-1", "a@example.com", "hash-a", 2, int64(1700000000))
		mock.ExpectQuery(q).WithArgs("id-1", domain.VerificationOTP, "hash-a").WillReturnRows(rows)

		v, err := NewVerificationRepo(db).ConsumeCode(context.Background(), "id-1", domain.VerificationOTP, "hash-a")
		require.NoError(t, err)
		assert.Equal(t, 2, v.Attempts)
	})

	t.Run("replaced code is not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WithArgs("id-1", domain.VerificationOTP, "hash-old").WillReturnError(sql.ErrNoRows)

		_, err := NewVerificationRepo(db).ConsumeCode(context.Background(), "id-1", domain.VerificationOTP, "hash-old")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestVerificationCountFailure(t *testing.T) {
	q := `(?s)^UPDATE\s+verifications\s+SET\s+attempts\s*=\s*attempts\s*\+\s*1\s+WHERE\s+subject\s*=\s*\$1\s+AND\s+type\s*=\s*\$2\s+AND\s+code\s*=\s*\$3\s+RETURNING\s+attempts`

	t.Run("returns new count", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WithArgs("id-1", domain.VerificationOTP, "hash-a").
			WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(3))

		n, err := NewVerificationRepo(db).CountFailure(context.Background(), "id-1", domain.VerificationOTP, "hash-a")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := NewVerificationRepo(db).CountFailure(context.Background(), "id-1", domain.VerificationOTP, "hash-a")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSubscriberUpsert_KeepsCreatedAtOnConflict(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+newsletter_subscribers.*ON\s+CONFLICT\s+\(email\)\s+DO\s+UPDATE\s+SET\s+is_active\s*=\s*EXCLUDED\.is_active,\s*updated_at\s*=\s*EXCLUDED\.updated_at$`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewSubscriberRepo(db).Upsert(context.Background(), &domain.Subscriber{Email: "a@example.com", IsActive: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT\s+INTO\s+identities`).WillReturnError(uniqueErr("identities_email_key"))

	err := NewIdentityRepo(db).Create(context.Background(), &domain.Identity{IdentityID: "id", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	db, _ := newMock(t)
	var gotDir string
	orig := gooseUpContext
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	t.Cleanup(func() { gooseUpContext = orig })

	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

package http

import (
	"context"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

// EntrantRepository is the minimal interface the router requires from a waitlist store.
type EntrantRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Entrant, error)
	Create(ctx context.Context, e *domain.Entrant) error
	// MarkVerified flips is_verified only when it is still false and reports
	// whether this call did the flip.
	MarkVerified(ctx context.Context, email, userID string, at time.Time) (bool, error)
	CountReferrals(ctx context.Context, refCode string) (int, error)
	CountVerifiedBefore(ctx context.Context, t time.Time) (int, error)
	ListVerified(ctx context.Context) ([]domain.Entrant, error)
	ReferralTally(ctx context.Context) (map[string]int, error)
}

// IdentityRepository is the minimal interface the router requires from an identity store.
type IdentityRepository interface {
	Create(ctx context.Context, i *domain.Identity) error
	Get(ctx context.Context, identityID string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	MarkSignedIn(ctx context.Context, identityID string, at time.Time) error
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

// VerificationRepository is the minimal interface the router requires from a verification store.
type VerificationRepository interface {
	Put(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, subject, verType string) (*domain.Verification, error)
	// Consume deletes and returns the record; a second call finds nothing.
	Consume(ctx context.Context, subject, verType string) (*domain.Verification, error)
	// ConsumeCode is Consume guarded by the stored code still matching.
	ConsumeCode(ctx context.Context, subject, verType, code string) (*domain.Verification, error)
	// CountFailure increments the attempt counter of the row holding code.
	CountFailure(ctx context.Context, subject, verType, code string) (int, error)
}

// SubscriberRepository is the minimal interface the router requires from a newsletter store.
type SubscriberRepository interface {
	Get(ctx context.Context, email string) (*domain.Subscriber, error)
	Upsert(ctx context.Context, s *domain.Subscriber) error
	Deactivate(ctx context.Context, email string) error
}

// Mailer sends one HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// DomainChecker reports whether an email domain can receive mail.
type DomainChecker interface {
	HasMX(ctx context.Context, domain string) bool
}

// Package verification implements the server side of the email verification
// handshake: the conditional finalize, the state query used by the
// confirmation page, and the waiting-tab watch that combines push and poll.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-waitlist-api/internal/application/auth"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

// Handshake is what the confirmation page needs to pick its next state.
type Handshake struct {
	State  string `json:"state"`
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

type Service interface {
	// Status reports whether the principal's entrant still needs finalizing.
	Status(ctx context.Context, p *auth.Principal) (*Handshake, error)
	// Finalize flips the entrant to verified. The claimed email and user id
	// must belong to p.
	Finalize(ctx context.Context, p *auth.Principal, email, userID string) (string, error)
	// MarkOnRedeem verifies the entrant straight from token redemption.
	MarkOnRedeem(ctx context.Context, identity *domain.Identity) error
	IsVerified(ctx context.Context, email string) (bool, error)
	// Watch emits exactly one event (EMAIL_VERIFIED or EXPIRED) and closes,
	// or closes without an event when ctx ends first.
	Watch(ctx context.Context, email string) <-chan domain.VerificationEvent
}

type entrantStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Entrant, error)
	MarkVerified(ctx context.Context, email, userID string, at time.Time) (bool, error)
}

type subscriber interface {
	Subscribe(email string) (<-chan domain.VerificationEvent, func())
}

type publisher interface {
	Publish(ctx context.Context, ev domain.VerificationEvent) error
}

type service struct {
	entrants     entrantStore
	hub          subscriber
	publisher    publisher
	pollInterval time.Duration
	waitWindow   time.Duration
	now          func() time.Time
}

type ServiceDeps struct {
	EntrantRepo  entrantStore
	Hub          subscriber
	Publisher    publisher
	PollInterval time.Duration
	WaitWindow   time.Duration
}

func NewService(deps ServiceDeps) Service {
	poll := deps.PollInterval
	if poll <= 0 {
		poll = 3 * time.Second
	}
	window := deps.WaitWindow
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &service{
		entrants:     deps.EntrantRepo,
		hub:          deps.Hub,
		publisher:    deps.Publisher,
		pollInterval: poll,
		waitWindow:   window,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Status(ctx context.Context, p *auth.Principal) (*Handshake, error) {
	e, err := s.entrants.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	state := domain.StateConfirmed
	if e.IsVerified {
		state = domain.StateAlreadyVerified
	}
	return &Handshake{State: state, Email: e.Email, UserID: p.IdentityID}, nil
}

func (s *service) Finalize(ctx context.Context, p *auth.Principal, email, userID string) (string, error) {
	email = validate.NormalizeEmail(email)
	if email == "" || userID == "" {
		return "", fmt.Errorf("email and userId are required: %w", domain.ErrBadRequest)
	}
	if p.Email != email || p.IdentityID != userID {
		slog.Warn("finalize rejected: session does not own email", "identity_id", p.IdentityID)
		return "", fmt.Errorf("session does not match claimed identity: %w", domain.ErrUnauthorized)
	}
	return s.mark(ctx, email, userID)
}

func (s *service) MarkOnRedeem(ctx context.Context, identity *domain.Identity) error {
	_, err := s.mark(ctx, identity.Email, identity.IdentityID)
	return err
}

// mark is the single path to is_verified=true. The store update is
// conditional on the flag being false, so concurrent callers see exactly
// one StateSuccess.
func (s *service) mark(ctx context.Context, email, userID string) (string, error) {
	flipped, err := s.entrants.MarkVerified(ctx, email, userID, s.now())
	if err != nil {
		return "", err
	}
	if !flipped {
		return domain.StateAlreadyVerified, nil
	}
	slog.Info("entrant verified", "email", email)
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, domain.VerificationEvent{Type: domain.EventEmailVerified, Email: email})
	}
	return domain.StateSuccess, nil
}

// IsVerified reports false for unknown emails so a waiting tab keeps polling.
func (s *service) IsVerified(ctx context.Context, email string) (bool, error) {
	e, err := s.entrants.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.IsVerified, nil
}

func (s *service) Watch(ctx context.Context, email string) <-chan domain.VerificationEvent {
	out := make(chan domain.VerificationEvent, 1)
	events, cancel := s.hub.Subscribe(email)

	go func() {
		defer close(out)
		defer cancel()

		emit := func(typ string) {
			select {
			case out <- domain.VerificationEvent{Type: typ, Email: email}:
			case <-ctx.Done():
			}
		}
		verified := func() bool {
			ok, err := s.IsVerified(ctx, email)
			if err != nil {
				slog.Warn("verification poll failed", "err", err)
			}
			return ok
		}

		if verified() {
			emit(domain.EventEmailVerified)
			return
		}

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		expiry := time.NewTimer(s.waitWindow)
		defer expiry.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				emit(ev.Type)
				return
			case <-ticker.C:
				if verified() {
					emit(domain.EventEmailVerified)
					return
				}
			case <-expiry.C:
				emit(domain.EventExpired)
				return
			}
		}
	}()
	return out
}

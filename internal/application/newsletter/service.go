package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

var (
	ErrInvalidEmail      = fmt.Errorf("valid email required: %w", domain.ErrBadRequest)
	ErrAlreadySubscribed = fmt.Errorf("already subscribed: %w", domain.ErrConflict)
)

type Service interface {
	// Subscribe adds email or reactivates a previous subscription.
	Subscribe(ctx context.Context, email string) error
	// Unsubscribe keeps the row and marks it inactive. Unknown emails succeed.
	Unsubscribe(ctx context.Context, email string) error
}

type subscriberStore interface {
	Get(ctx context.Context, email string) (*domain.Subscriber, error)
	Upsert(ctx context.Context, s *domain.Subscriber) error
	Deactivate(ctx context.Context, email string) error
}

type service struct {
	subscribers subscriberStore
	now         func() time.Time
}

func NewService(subscribers subscriberStore) Service {
	return &service{subscribers: subscribers, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) Subscribe(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if !validate.Email(email) {
		return ErrInvalidEmail
	}

	existing, err := s.subscribers.Get(ctx, email)
	switch {
	case err == nil && existing.IsActive:
		return ErrAlreadySubscribed
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("lookup subscriber: %w", err)
	}

	now := s.now()
	return s.subscribers.Upsert(ctx, &domain.Subscriber{
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *service) Unsubscribe(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("invalid link: %w", domain.ErrBadRequest)
	}
	return s.subscribers.Deactivate(ctx, email)
}

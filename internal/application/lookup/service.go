package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

// ErrNotVerified covers both unknown and unverified emails; callers cannot
// tell them apart.
var ErrNotVerified = fmt.Errorf("email not found or not verified: %w", domain.ErrNotFound)

// Service lets a verified entrant without a session prove ownership of their
// email with a one-time passcode and read their own stats.
type Service interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*domain.Stats, error)
}

type entrantStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Entrant, error)
}

type otpSender interface {
	SendOTP(ctx context.Context, email string, createUser bool) error
	VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error)
}

type statsReader interface {
	Stats(ctx context.Context, email string) (*domain.Stats, error)
}

type service struct {
	entrants entrantStore
	otp      otpSender
	stats    statsReader
}

type ServiceDeps struct {
	EntrantRepo entrantStore
	OTP         otpSender
	Stats       statsReader
}

func NewService(deps ServiceDeps) Service {
	return &service{entrants: deps.EntrantRepo, otp: deps.OTP, stats: deps.Stats}
}

func (s *service) RequestOTP(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return ErrNotVerified
	}
	e, err := s.entrants.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotVerified
	}
	if err != nil {
		return fmt.Errorf("lookup entrant: %w", err)
	}
	if !e.IsVerified {
		return ErrNotVerified
	}

	// Lookup never enrolls a new identity.
	err = s.otp.SendOTP(ctx, email, false)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrNotVerified
	}
	return err
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) (*domain.Stats, error) {
	email = validate.NormalizeEmail(email)
	code = validate.Sanitize(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("email and code are required: %w", domain.ErrBadRequest)
	}
	if _, err := s.otp.VerifyOTP(ctx, email, code); err != nil {
		return nil, err
	}
	st, err := s.stats.Stats(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotVerified
	}
	return st, err
}

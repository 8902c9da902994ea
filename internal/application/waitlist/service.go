package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

// maxCodeAttempts bounds how many fresh referral codes are tried when the
// store reports a collision.
const maxCodeAttempts = 5

var (
	ErrInvalidEmail  = fmt.Errorf("invalid email: %w", domain.ErrBadRequest)
	ErrInvalidDomain = fmt.Errorf("invalid email domain: %w", domain.ErrBadRequest)
)

// Outcome tells the caller which signup path ran.
type Outcome int

const (
	Created Outcome = iota + 1
	Resent
)

type Service interface {
	Join(ctx context.Context, req domain.JoinWaitlistRequest) (Outcome, error)
}

type entrantStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Entrant, error)
	Create(ctx context.Context, e *domain.Entrant) error
}

type linkIssuer interface {
	IdentityExists(ctx context.Context, email string) (bool, error)
	GenerateLink(ctx context.Context, linkType, email string) (string, error)
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type domainChecker interface {
	HasMX(ctx context.Context, domain string) bool
}

type codeGenerator interface {
	Generate() (string, error)
}

type service struct {
	entrants entrantStore
	links    linkIssuer
	mailer   mailer
	domains  domainChecker
	codes    codeGenerator
	now      func() time.Time
}

type ServiceDeps struct {
	EntrantRepo entrantStore
	Links       linkIssuer
	Mailer      mailer
	// DomainChecker is optional; nil skips the MX check.
	DomainChecker domainChecker
	Codes         codeGenerator
}

func NewService(deps ServiceDeps) Service {
	return &service{
		entrants: deps.EntrantRepo,
		links:    deps.Links,
		mailer:   deps.Mailer,
		domains:  deps.DomainChecker,
		codes:    deps.Codes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Join(ctx context.Context, req domain.JoinWaitlistRequest) (Outcome, error) {
	email := validate.NormalizeEmail(req.Email)
	if !validate.Email(email) {
		return 0, ErrInvalidEmail
	}
	if s.domains != nil && !s.domains.HasMX(ctx, validate.Domain(email)) {
		return 0, ErrInvalidDomain
	}

	existing, err := s.entrants.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.resend(ctx, existing)
	case !errors.Is(err, domain.ErrNotFound):
		return 0, fmt.Errorf("lookup entrant: %w", err)
	}

	var referredBy *string
	if ref := validate.Sanitize(req.ReferredBy); ref != "" {
		referredBy = &ref
	}
	if err := s.insert(ctx, email, referredBy); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return 0, err
		}
		// A concurrent signup for the same email won the insert.
		existing, err := s.entrants.GetByEmail(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("lookup entrant: %w", err)
		}
		return s.resend(ctx, existing)
	}

	link, err := s.issueLink(ctx, email)
	if err != nil {
		return 0, err
	}
	if err := s.mailer.SendEmail(ctx, email, confirmSubject, welcomeHTML(link)); err != nil {
		slog.Error("verification email failed", "email", email, "err", err)
		return 0, fmt.Errorf("send verification email: %v: %w", err, domain.ErrExternal)
	}
	return Created, nil
}

// resend handles a signup for an email that already has a row. The row
// itself is never modified here.
func (s *service) resend(ctx context.Context, e *domain.Entrant) (Outcome, error) {
	if e.IsVerified {
		return 0, &domain.AlreadyVerifiedError{RefCode: e.RefCode}
	}
	link, err := s.issueLink(ctx, e.Email)
	if err != nil {
		return 0, err
	}
	if err := s.mailer.SendEmail(ctx, e.Email, confirmSubject, welcomeBackHTML(link)); err != nil {
		slog.Error("verification email failed", "email", e.Email, "err", err)
		return 0, fmt.Errorf("resend verification email: %v: %w", err, domain.ErrExternal)
	}
	return Resent, nil
}

func (s *service) insert(ctx context.Context, email string, referredBy *string) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return err
		}
		err = s.entrants.Create(ctx, &domain.Entrant{
			Email:      email,
			RefCode:    code,
			ReferredBy: referredBy,
			IsVerified: false,
			CreatedAt:  s.now(),
		})
		if !errors.Is(err, domain.ErrRefCodeTaken) {
			return err
		}
		slog.Warn("referral code collision", "attempt", attempt)
	}
	return fmt.Errorf("no free referral code after %d attempts", maxCodeAttempts)
}

// issueLink uses a magic link when an identity already exists for email and
// a signup link otherwise.
func (s *service) issueLink(ctx context.Context, email string) (string, error) {
	exists, err := s.links.IdentityExists(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup identity: %w", err)
	}
	linkType := domain.VerificationSignup
	if exists {
		linkType = domain.VerificationMagicLink
	}
	link, err := s.links.GenerateLink(ctx, linkType, email)
	if errors.Is(err, domain.ErrConflict) && linkType == domain.VerificationSignup {
		link, err = s.links.GenerateLink(ctx, domain.VerificationMagicLink, email)
	}
	if err != nil {
		return "", fmt.Errorf("generate action link: %w", err)
	}
	return link, nil
}

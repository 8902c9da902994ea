package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-waitlist-api/internal/domain"
	jwtinfra "github.com/go-waitlist-api/internal/infrastructure/jwt"
	"github.com/go-waitlist-api/internal/pkg/id"
	pkgtoken "github.com/go-waitlist-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// Principal is the authenticated caller behind a bearer token.
type Principal struct {
	IdentityID string
	Email      string
	SessionID  string
}

type Service interface {
	// GenerateLink issues a single-use action link for email. "signup" creates
	// the identity; "magiclink" requires it to exist.
	GenerateLink(ctx context.Context, linkType, email string) (string, error)
	RedeemLink(ctx context.Context, token, linkType string) (*domain.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error)
	ValidateBearer(ctx context.Context, bearer string) (*Principal, error)
	IdentityExists(ctx context.Context, email string) (bool, error)
	SendOTP(ctx context.Context, email string, createUser bool) error
	VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error)
}

type identityStore interface {
	Create(ctx context.Context, i *domain.Identity) error
	Get(ctx context.Context, identityID string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	MarkSignedIn(ctx context.Context, identityID string, at time.Time) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, subject, verType string) (*domain.Verification, error)
	Consume(ctx context.Context, subject, verType string) (*domain.Verification, error)
	ConsumeCode(ctx context.Context, subject, verType, code string) (*domain.Verification, error)
	CountFailure(ctx context.Context, subject, verType, code string) (int, error)
}

// maxOTPAttempts wrong guesses burn the code; the caller has to request a new one.
const maxOTPAttempts = 5

type mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type jwtSigner interface {
	Sign(identityID, email, sessionID string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type service struct {
	identities      identityStore
	sessions        sessionStore
	verifications   verificationStore
	mailer          mailer
	jwtProvider     jwtSigner
	siteURL         string
	linkTTL         time.Duration
	otpTTL          time.Duration
	refreshTokenDur time.Duration
	bcryptCost      int
	now             func() time.Time
}

type ServiceDeps struct {
	IdentityRepo     identityStore
	SessionRepo      sessionStore
	VerificationRepo verificationStore
	Mailer           mailer
	JWTProvider      jwtSigner
	SiteURL          string
	LinkTTL          time.Duration
	OTPTTL           time.Duration
	RefreshTokenDur  time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		identities:      deps.IdentityRepo,
		sessions:        deps.SessionRepo,
		verifications:   deps.VerificationRepo,
		mailer:          deps.Mailer,
		jwtProvider:     deps.JWTProvider,
		siteURL:         deps.SiteURL,
		linkTTL:         deps.LinkTTL,
		otpTTL:          deps.OTPTTL,
		refreshTokenDur: deps.RefreshTokenDur,
		bcryptCost:      cost,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) GenerateLink(ctx context.Context, linkType, email string) (string, error) {
	var ident *domain.Identity
	switch linkType {
	case domain.VerificationSignup:
		created, err := s.createIdentity(ctx, email)
		if err != nil {
			return "", err
		}
		ident = created
	case domain.VerificationMagicLink:
		existing, err := s.identities.GetByEmail(ctx, email)
		if err != nil {
			return "", fmt.Errorf("no identity for magic link: %w", err)
		}
		ident = existing
	default:
		return "", fmt.Errorf("unknown link type %q: %w", linkType, domain.ErrBadRequest)
	}

	raw, err := pkgtoken.NewActionToken()
	if err != nil {
		return "", err
	}
	v := &domain.Verification{
		Subject:    pkgtoken.Hash(raw),
		Type:       linkType,
		IdentityID: ident.IdentityID,
		Email:      ident.Email,
		ExpiresAt:  s.now().Add(s.linkTTL).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("token_hash", raw)
	q.Set("type", linkType)
	return s.siteURL + "/auth/confirm?" + q.Encode(), nil
}

func (s *service) RedeemLink(ctx context.Context, token, linkType string) (*domain.Credentials, error) {
	if token == "" || !domain.IsActionLink(linkType) {
		return nil, fmt.Errorf("malformed action link: %w", domain.ErrUnauthorized)
	}
	v, err := s.verifications.Consume(ctx, pkgtoken.Hash(token), linkType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("link invalid or already used: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if v.ExpiresAt < s.now().Unix() {
		return nil, fmt.Errorf("link expired: %w", domain.ErrUnauthorized)
	}
	return s.signIn(ctx, v.IdentityID)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token required: %w", domain.ErrBadRequest)
	}
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.RefreshExpiresAt < s.now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	ident, err := s.identities.Get(ctx, sess.IdentityID)
	if err != nil {
		return nil, err
	}
	newRefresh, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newRefresh, s.now().Add(s.refreshTokenDur).Unix()); err != nil {
		return nil, err
	}
	bearer, exp, err := s.jwtProvider.Sign(ident.IdentityID, ident.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &domain.Credentials{AccessToken: bearer, RefreshToken: newRefresh, ExpiresAt: exp, Identity: ident}, nil
}

func (s *service) ValidateBearer(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.jwtProvider.Verify(bearer)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !sess.Enable || sess.IdentityID != claims.IdentityID() {
		return nil, fmt.Errorf("session revoked: %w", domain.ErrUnauthorized)
	}
	return &Principal{IdentityID: claims.IdentityID(), Email: claims.Email, SessionID: claims.SessionID}, nil
}

func (s *service) IdentityExists(ctx context.Context, email string) (bool, error) {
	_, err := s.identities.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// SendOTP emails a 6-digit code. With createUser=false an unknown email fails
// with ErrNotFound and no identity is enrolled.
func (s *service) SendOTP(ctx context.Context, email string, createUser bool) error {
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if !createUser {
			return fmt.Errorf("identity not found: %w", domain.ErrNotFound)
		}
		if ident, err = s.createIdentity(ctx, email); err != nil {
			return err
		}
	}

	code, err := pkgtoken.NewOTP()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return err
	}
	v := &domain.Verification{
		Subject:    ident.IdentityID,
		Type:       domain.VerificationOTP,
		IdentityID: ident.IdentityID,
		Email:      ident.Email,
		Code:       string(hash),
		ExpiresAt:  s.now().Add(s.otpTTL).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, ident.Email, otpSubject, otpEmailHTML(code, s.otpTTL)); err != nil {
		return fmt.Errorf("send otp: %v: %w", err, domain.ErrExternal)
	}
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("code required: %w", domain.ErrBadRequest)
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	v, err := s.verifications.Get(ctx, ident.IdentityID, domain.VerificationOTP)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if v.ExpiresAt < s.now().Unix() {
		return nil, fmt.Errorf("code expired: %w", domain.ErrUnauthorized)
	}
	if v.Attempts >= maxOTPAttempts {
		s.burnOTP(ctx, v)
		return nil, fmt.Errorf("too many attempts: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.Code), []byte(code)); err != nil {
		if err := s.countOTPFailure(ctx, v); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	if _, err := s.verifications.ConsumeCode(ctx, v.Subject, v.Type, v.Code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("code already used: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.identities.MarkSignedIn(ctx, ident.IdentityID, s.now()); err != nil {
		slog.Warn("failed to stamp sign-in", "identity_id", ident.IdentityID, "err", err)
	}
	return ident, nil
}

// countOTPFailure records a wrong guess against v and deletes it once the
// attempt cap is reached. A row that is already gone or was replaced by a
// newer code is not an error.
func (s *service) countOTPFailure(ctx context.Context, v *domain.Verification) error {
	n, err := s.verifications.CountFailure(ctx, v.Subject, v.Type, v.Code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if n >= maxOTPAttempts {
		s.burnOTP(ctx, v)
	}
	return nil
}

func (s *service) burnOTP(ctx context.Context, v *domain.Verification) {
	if _, err := s.verifications.ConsumeCode(ctx, v.Subject, v.Type, v.Code); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("failed to discard otp", "identity_id", v.IdentityID, "err", err)
	}
}

func (s *service) createIdentity(ctx context.Context, email string) (*domain.Identity, error) {
	now := s.now()
	ident := &domain.Identity{
		IdentityID: id.New(),
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		return nil, err
	}
	return ident, nil
}

func (s *service) signIn(ctx context.Context, identityID string) (*domain.Credentials, error) {
	now := s.now()
	if err := s.identities.MarkSignedIn(ctx, identityID, now); err != nil {
		return nil, err
	}
	ident, err := s.identities.Get(ctx, identityID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{
		SessionID:        id.New(),
		IdentityID:       identityID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, exp, err := s.jwtProvider.Sign(identityID, ident.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &domain.Credentials{AccessToken: bearer, RefreshToken: refreshToken, ExpiresAt: exp, Identity: ident}, nil
}

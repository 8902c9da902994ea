package handler

import (
	"context"
	"net/http"

	"github.com/go-waitlist-api/internal/application/auth"
	"github.com/go-waitlist-api/internal/application/verification"
	"github.com/go-waitlist-api/internal/application/waitlist"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockWaitlistSvc struct{ mock.Mock }

func (m *mockWaitlistSvc) Join(ctx context.Context, req domain.JoinWaitlistRequest) (waitlist.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(waitlist.Outcome), args.Error(1)
}

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) Status(ctx context.Context, p *auth.Principal) (*verification.Handshake, error) {
	args := m.Called(ctx, p)
	if h, _ := args.Get(0).(*verification.Handshake); h != nil {
		return h, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) Finalize(ctx context.Context, p *auth.Principal, email, userID string) (string, error) {
	args := m.Called(ctx, p, email, userID)
	return args.String(0), args.Error(1)
}

func (m *mockVerificationSvc) MarkOnRedeem(ctx context.Context, identity *domain.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *mockVerificationSvc) IsVerified(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockVerificationSvc) Watch(ctx context.Context, email string) <-chan domain.VerificationEvent {
	return m.Called(ctx, email).Get(0).(<-chan domain.VerificationEvent)
}

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) GenerateLink(ctx context.Context, linkType, email string) (string, error) {
	args := m.Called(ctx, linkType, email)
	return args.String(0), args.Error(1)
}

func (m *mockAuthSvc) RedeemLink(ctx context.Context, token, linkType string) (*domain.Credentials, error) {
	args := m.Called(ctx, token, linkType)
	if c, _ := args.Get(0).(*domain.Credentials); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	args := m.Called(ctx, refreshToken)
	if c, _ := args.Get(0).(*domain.Credentials); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) ValidateBearer(ctx context.Context, bearer string) (*auth.Principal, error) {
	args := m.Called(ctx, bearer)
	if p, _ := args.Get(0).(*auth.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) IdentityExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockAuthSvc) SendOTP(ctx context.Context, email string, createUser bool) error {
	return m.Called(ctx, email, createUser).Error(0)
}

func (m *mockAuthSvc) VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error) {
	args := m.Called(ctx, email, code)
	if i, _ := args.Get(0).(*domain.Identity); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLookupSvc struct{ mock.Mock }

func (m *mockLookupSvc) RequestOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockLookupSvc) VerifyOTP(ctx context.Context, email, code string) (*domain.Stats, error) {
	args := m.Called(ctx, email, code)
	if s, _ := args.Get(0).(*domain.Stats); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRankingSvc struct{ mock.Mock }

func (m *mockRankingSvc) Stats(ctx context.Context, email string) (*domain.Stats, error) {
	args := m.Called(ctx, email)
	if s, _ := args.Get(0).(*domain.Stats); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRankingSvc) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]domain.LeaderboardEntry)
	return entries, args.Error(1)
}

type mockNewsletterSvc struct{ mock.Mock }

func (m *mockNewsletterSvc) Subscribe(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockNewsletterSvc) Unsubscribe(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

// --- helpers ---

var alice = &auth.Principal{IdentityID: "id-a", Email: "a@example.com", SessionID: "s-1"}

func withPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.PrincipalKey, p))
}

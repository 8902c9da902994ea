package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/infrastructure/memory"
	"github.com/go-waitlist-api/internal/pkg/refcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLinks struct{ mock.Mock }

func (m *mockLinks) IdentityExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockLinks) GenerateLink(ctx context.Context, linkType, email string) (string, error) {
	args := m.Called(ctx, linkType, email)
	return args.String(0), args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

type fixedDomains bool

func (f fixedDomains) HasMX(context.Context, string) bool { return bool(f) }

// scriptedCodes hands out codes in order.
type scriptedCodes struct{ codes []string }

func (s *scriptedCodes) Generate() (string, error) {
	if len(s.codes) == 0 {
		return "", errors.New("out of codes")
	}
	c := s.codes[0]
	s.codes = s.codes[1:]
	return c, nil
}

// --- builder ---

type fixture struct {
	svc      Service
	entrants *memory.EntrantRepo
	links    *mockLinks
	mailer   *mockMailer
}

func newFixture(t *testing.T, codes codeGenerator, domains domainChecker) *fixture {
	t.Helper()
	f := &fixture{
		entrants: memory.NewEntrantRepo(),
		links:    &mockLinks{},
		mailer:   &mockMailer{},
	}
	f.svc = NewService(ServiceDeps{
		EntrantRepo:   f.entrants,
		Links:         f.links,
		Mailer:        f.mailer,
		DomainChecker: domains,
		Codes:         codes,
	})
	return f
}

const link = "https://baserise.online/auth/confirm?token_hash=abc&type=signup"

// --- Join ---

func TestJoin_InvalidEmail(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	for _, email := range []string{"", "not-an-email", "<>@", "a@b"} {
		_, err := f.svc.Join(context.Background(), domain.JoinWaitlistRequest{Email: email})
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
		assert.ErrorIs(t, err, domain.ErrBadRequest, email)
	}
	f.links.AssertNotCalled(t, "GenerateLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoin_CreatesEntrant(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	ctx := context.Background()
	f.links.On("IdentityExists", mock.Anything, "a@example.com").Return(false, nil)
	f.links.On("GenerateLink", mock.Anything, domain.VerificationSignup, "a@example.com").Return(link, nil)
	f.mailer.On("SendEmail", mock.Anything, "a@example.com", confirmSubject, mock.MatchedBy(func(html string) bool {
		return assert.Contains(t, html, "Welcome to the Evolution!") && assert.Contains(t, html, "token_hash=abc")
	})).Return(nil)

	out, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "  <A@Example.com> "})
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	e, err := f.entrants.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, e.IsVerified)
	assert.True(t, refcode.Valid(e.RefCode))
	assert.Nil(t, e.ReferredBy)
	f.mailer.AssertExpectations(t)
}

func TestJoin_StoresReferralAsIs(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	ctx := context.Background()
	f.links.On("IdentityExists", mock.Anything, mock.Anything).Return(false, nil)
	f.links.On("GenerateLink", mock.Anything, mock.Anything, mock.Anything).Return(link, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "b@example.com", ReferredBy: " <br-unknown> "})
	require.NoError(t, err)

	e, err := f.entrants.GetByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	require.NotNil(t, e.ReferredBy)
	assert.Equal(t, "br-unknown", *e.ReferredBy)
}

func TestJoin_ResendForUnverified(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	ctx := context.Background()
	f.links.On("IdentityExists", mock.Anything, "a@example.com").Return(false, nil).Once()
	f.links.On("GenerateLink", mock.Anything, domain.VerificationSignup, "a@example.com").Return(link, nil).Once()
	f.mailer.On("SendEmail", mock.Anything, "a@example.com", confirmSubject, mock.Anything).Return(nil)

	_, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "a@example.com"})
	require.NoError(t, err)
	first, err := f.entrants.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)

	f.links.On("IdentityExists", mock.Anything, "a@example.com").Return(true, nil)
	f.links.On("GenerateLink", mock.Anything, domain.VerificationMagicLink, "a@example.com").Return(link, nil)

	out, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "a@example.com", ReferredBy: "BRFFFFFFFF"})
	require.NoError(t, err)
	assert.Equal(t, Resent, out)

	second, err := f.entrants.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	f.links.AssertCalled(t, "GenerateLink", mock.Anything, domain.VerificationMagicLink, "a@example.com")
}

func TestJoin_AlreadyVerified(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	ctx := context.Background()
	require.NoError(t, f.entrants.Create(ctx, &domain.Entrant{Email: "v@example.com", RefCode: "BR1A2B3C4D"}))
	_, err := f.entrants.MarkVerified(ctx, "v@example.com", "id-1", time.Now())
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "v@example.com"})
	var av *domain.AlreadyVerifiedError
	require.ErrorAs(t, err, &av)
	assert.Equal(t, "BR1A2B3C4D", av.RefCode)
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJoin_RetriesOnCodeCollision(t *testing.T) {
	ctx := context.Background()
	codes := &scriptedCodes{codes: []string{"BRAAAAAAAA", "BRAAAAAAAA", "BRBBBBBBBB"}}
	f := newFixture(t, codes, nil)
	require.NoError(t, f.entrants.Create(ctx, &domain.Entrant{Email: "first@example.com", RefCode: "BRAAAAAAAA"}))
	f.links.On("IdentityExists", mock.Anything, mock.Anything).Return(false, nil)
	f.links.On("GenerateLink", mock.Anything, mock.Anything, mock.Anything).Return(link, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "second@example.com"})
	require.NoError(t, err)

	e, err := f.entrants.GetByEmail(ctx, "second@example.com")
	require.NoError(t, err)
	assert.Equal(t, "BRBBBBBBBB", e.RefCode)
}

func TestJoin_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	same := make([]string, maxCodeAttempts)
	for i := range same {
		same[i] = "BRAAAAAAAA"
	}
	f := newFixture(t, &scriptedCodes{codes: same}, nil)
	require.NoError(t, f.entrants.Create(ctx, &domain.Entrant{Email: "first@example.com", RefCode: "BRAAAAAAAA"}))

	_, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "second@example.com"})
	require.Error(t, err)
	_, err = f.entrants.GetByEmail(ctx, "second@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoin_MailFailureKeepsRow(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	ctx := context.Background()
	f.links.On("IdentityExists", mock.Anything, mock.Anything).Return(false, nil)
	f.links.On("GenerateLink", mock.Anything, mock.Anything, mock.Anything).Return(link, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := f.svc.Join(ctx, domain.JoinWaitlistRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrExternal)

	_, err = f.entrants.GetByEmail(ctx, "a@example.com")
	assert.NoError(t, err)
}

func TestJoin_SignupLinkConflictFallsBackToMagicLink(t *testing.T) {
	f := newFixture(t, refcode.New(), nil)
	f.links.On("IdentityExists", mock.Anything, mock.Anything).Return(false, nil)
	f.links.On("GenerateLink", mock.Anything, domain.VerificationSignup, mock.Anything).Return("", domain.ErrConflict)
	f.links.On("GenerateLink", mock.Anything, domain.VerificationMagicLink, mock.Anything).Return(link, nil)
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Join(context.Background(), domain.JoinWaitlistRequest{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, Created, out)
}

func TestJoin_DomainCheck(t *testing.T) {
	f := newFixture(t, refcode.New(), fixedDomains(false))
	_, err := f.svc.Join(context.Background(), domain.JoinWaitlistRequest{Email: "a@nowhere.invalid"})
	assert.ErrorIs(t, err, ErrInvalidDomain)
}

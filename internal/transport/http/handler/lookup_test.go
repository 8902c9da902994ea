package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-waitlist-api/internal/application/lookup"
	"github.com/go-waitlist-api/internal/application/newsletter"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLookupHandler_Request(t *testing.T) {
	svc := &mockLookupSvc{}
	svc.On("RequestOTP", mock.Anything, "v@example.com").Return(nil)
	svc.On("RequestOTP", mock.Anything, "u@example.com").Return(lookup.ErrNotVerified)
	h := NewLookupHandler(svc)

	rr := httptest.NewRecorder()
	h.Request(rr, postJSON("/lookup", map[string]string{"email": "v@example.com"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"OTP sent successfully!"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Request(rr, postJSON("/lookup", map[string]string{"email": "u@example.com"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Email not found or not verified."}`, rr.Body.String())
}

func TestLookupHandler_Verify(t *testing.T) {
	svc := &mockLookupSvc{}
	svc.On("VerifyOTP", mock.Anything, "v@example.com", "123456").Return(&domain.Stats{
		Email: "v@example.com", RefCode: "BR00000001", Position: 3, CurrentRank: 2, TotalReferrals: 1, Points: 10,
	}, nil)
	svc.On("VerifyOTP", mock.Anything, "v@example.com", "000000").Return(nil, domain.ErrUnauthorized)
	h := NewLookupHandler(svc)

	rr := httptest.NewRecorder()
	h.Verify(rr, postJSON("/lookup/verify", map[string]string{"email": "v@example.com", "code": "123456"}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"refCode":"BR00000001","currentRank":2,"totalReferrals":1,"points":10}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Verify(rr, postJSON("/lookup/verify", map[string]string{"email": "v@example.com", "code": "000000"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired code."}`, rr.Body.String())
}

func TestLookupHandler_MissingFields(t *testing.T) {
	svc := &mockLookupSvc{}
	h := NewLookupHandler(svc)

	rr := httptest.NewRecorder()
	h.Request(rr, postJSON("/lookup", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Email is required"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Verify(rr, postJSON("/lookup/verify", map[string]string{"email": "v@example.com"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Email and code are required"}`, rr.Body.String())

	svc.AssertNotCalled(t, "RequestOTP", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatsHandler_Me(t *testing.T) {
	svc := &mockRankingSvc{}
	svc.On("Stats", mock.Anything, "a@example.com").Return(&domain.Stats{
		RefCode: "BR00000001", Position: 1, CurrentRank: 1, TotalReferrals: 2, Points: 20,
	}, nil)
	h := NewStatsHandler(svc)

	rr := httptest.NewRecorder()
	h.Me(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/me/stats", nil), alice))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"refCode":"BR00000001","position":1,"totalReferrals":2,"points":20,"currentRank":1}`, rr.Body.String())
}

func TestStatsHandler_Leaderboard(t *testing.T) {
	svc := &mockRankingSvc{}
	svc.On("Leaderboard", mock.Anything, 5).Return([]domain.LeaderboardEntry{
		{CurrentRank: 1, MaskedEmail: "al***@example.com", RefCode: "BR00000001", TotalReferrals: 2, Points: 20},
	}, nil)
	svc.On("Leaderboard", mock.Anything, 0).Return(nil, nil)
	h := NewStatsHandler(svc)

	rr := httptest.NewRecorder()
	h.Leaderboard(rr, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=5", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"currentRank":1,"maskedEmail":"al***@example.com","refCode":"BR00000001","totalReferrals":2,"points":20}]`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Leaderboard(rr, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=abc", nil))
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestNewsletterHandler(t *testing.T) {
	svc := &mockNewsletterSvc{}
	svc.On("Subscribe", mock.Anything, "n@example.com").Return(nil).Once()
	svc.On("Subscribe", mock.Anything, "n@example.com").Return(newsletter.ErrAlreadySubscribed)
	svc.On("Unsubscribe", mock.Anything, "n@example.com").Return(nil)
	svc.On("Unsubscribe", mock.Anything, "").Return(domain.ErrBadRequest)
	h := NewNewsletterHandler(svc)

	rr := httptest.NewRecorder()
	h.Subscribe(rr, postJSON("/newsletter", map[string]string{"email": "n@example.com"}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Subscribe(rr, postJSON("/newsletter", map[string]string{"email": "n@example.com"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"Already subscribed!"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Unsubscribe(rr, httptest.NewRequest(http.MethodGet, "/newsletter/unsubscribe?email=n@example.com", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "You have been successfully unsubscribed from BaseRise updates.", rr.Body.String())

	rr = httptest.NewRecorder()
	h.Unsubscribe(rr, httptest.NewRequest(http.MethodGet, "/newsletter/unsubscribe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthHandler_Ping(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health-check/{action}", NewHealthHandler().Ping)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/other", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-waitlist-api/internal/application/auth"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]*auth.Principal

func (s stubValidator) ValidateBearer(_ context.Context, token string) (*auth.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, domain.ErrUnauthorized
}

func TestAuth(t *testing.T) {
	alice := &auth.Principal{IdentityID: "id-a", Email: "a@example.com", SessionID: "s-1"}
	mw := Auth(stubValidator{"good": alice})

	var seen *auth.Principal
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusNoContent {
				assert.Equal(t, alice, seen)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rr.Body.String(), `"error"`)
			}
		})
	}
}

func TestPrincipalFromContext_Missing(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-waitlist-api/internal/application/auth"
	"github.com/go-waitlist-api/internal/application/verification"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
	"github.com/go-waitlist-api/internal/transport/http/middleware"
)

// AuthHandler serves the verification handshake: link redemption, session
// refresh, handshake state and finalize.
type AuthHandler struct {
	auth           auth.Service
	verification   verification.Service
	siteURL        string
	verifyOnRedeem bool
}

func NewAuthHandler(a auth.Service, v verification.Service, siteURL string, verifyOnRedeem bool) *AuthHandler {
	return &AuthHandler{auth: a, verification: v, siteURL: siteURL, verifyOnRedeem: verifyOnRedeem}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type verifyUserRequest struct {
	Email  string `json:"email" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// Confirm redeems an action link and redirects to the confirmation page with
// the session in the URL fragment, or to the error page.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	creds, err := h.auth.RedeemLink(r.Context(), q.Get("token_hash"), q.Get("type"))
	if err != nil {
		slog.Info("action link rejected", "err", err)
		http.Redirect(w, r, h.siteURL+"/error", http.StatusFound)
		return
	}

	if h.verifyOnRedeem && creds.Identity != nil {
		if err := h.verification.MarkOnRedeem(r.Context(), creds.Identity); err != nil {
			slog.Error("mark on redeem failed", "email", creds.Identity.Email, "err", err)
		}
	}

	fragment := url.Values{
		"access_token":  {creds.AccessToken},
		"refresh_token": {creds.RefreshToken},
		"expires_in":    {strconv.Itoa(int(time.Until(creds.ExpiresAt).Seconds()))},
		"type":          {domain.VerificationMagicLink},
	}
	http.Redirect(w, r, h.siteURL+"/verified#"+fragment.Encode(), http.StatusFound)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}
	creds, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err, map[error]string{domain.ErrUnauthorized: "invalid or expired session"})
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

// Status tells the confirmation page whether finalize is still needed.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	hs, err := h.verification.Status(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err, map[error]string{domain.ErrNotFound: "Email not on waitlist"})
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (h *AuthHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "email and userId are required")
		return
	}
	state, err := h.verification.Finalize(r.Context(), p, req.Email, req.UserID)
	if err != nil {
		writeServiceError(w, r, err, map[error]string{
			domain.ErrBadRequest:   "email and userId are required",
			domain.ErrUnauthorized: "session does not match email",
			domain.ErrNotFound:     "Email not on waitlist",
		})
		return
	}
	writeJSON(w, http.StatusOK, FinalizeEnvelope{Success: true, State: state})
}

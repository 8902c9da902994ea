package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-waitlist-api/internal/application/lookup"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

// LookupHandler handles the OTP stats lookup.
type LookupHandler struct {
	svc lookup.Service
}

func NewLookupHandler(svc lookup.Service) *LookupHandler { return &LookupHandler{svc: svc} }

type lookupRequest struct {
	Email string `json:"email" validate:"required"`
}

type lookupVerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

var lookupMessages = map[error]string{
	lookup.ErrNotVerified:  "Email not found or not verified.",
	domain.ErrBadRequest:   "Email and code are required",
	domain.ErrUnauthorized: "Invalid or expired code.",
}

func (h *LookupHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if err := h.svc.RequestOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err, lookupMessages)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP sent successfully!"})
}

func (h *LookupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req lookupVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, lookupMessages[domain.ErrBadRequest])
		return
	}
	st, err := h.svc.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err, lookupMessages)
		return
	}
	writeJSON(w, http.StatusOK, LookupStatsEnvelope{
		RefCode:        st.RefCode,
		CurrentRank:    st.CurrentRank,
		TotalReferrals: st.TotalReferrals,
		Points:         st.Points,
	})
}

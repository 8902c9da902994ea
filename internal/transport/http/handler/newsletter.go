package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-waitlist-api/internal/application/newsletter"
)

// NewsletterHandler handles newsletter subscribe and unsubscribe.
type NewsletterHandler struct {
	svc newsletter.Service
}

func NewNewsletterHandler(svc newsletter.Service) *NewsletterHandler {
	return &NewsletterHandler{svc: svc}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Valid email required")
		return
	}
	if err := h.svc.Subscribe(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err, map[error]string{
			newsletter.ErrInvalidEmail:      "Valid email required",
			newsletter.ErrAlreadySubscribed: "Already subscribed!",
		})
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Subscribed!"})
}

// Unsubscribe is reached from an email link and answers in plain text.
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unsubscribe(r.Context(), r.URL.Query().Get("email"))
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "You have been successfully unsubscribed from BaseRise updates.")
	case statusFor(err) == http.StatusBadRequest:
		writeText(w, http.StatusBadRequest, "Invalid link")
	default:
		slog.Error("unsubscribe failed", "err", err)
		writeText(w, http.StatusInternalServerError, "Error processing request")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}


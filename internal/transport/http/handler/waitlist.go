package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-waitlist-api/internal/application/verification"
	"github.com/go-waitlist-api/internal/application/waitlist"
	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/validate"
)

const sseHeartbeatInterval = 15 * time.Second

// WaitlistHandler handles signup and the waiting-tab endpoints.
type WaitlistHandler struct {
	svc          waitlist.Service
	verification verification.Service
}

func NewWaitlistHandler(svc waitlist.Service, v verification.Service) *WaitlistHandler {
	return &WaitlistHandler{svc: svc, verification: v}
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	out, err := h.svc.Join(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, map[error]string{
			waitlist.ErrInvalidEmail:  "A valid email is required",
			waitlist.ErrInvalidDomain: "Invalid email domain.",
		})
		return
	}
	msg := "Check your email for verification link!"
	if out == waitlist.Resent {
		msg = "Verification email resent!"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: msg})
}

// Status is polled by waiting tabs.
func (h *WaitlistHandler) Status(w http.ResponseWriter, r *http.Request) {
	email := validate.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}
	ok, err := h.verification.IsVerified(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, WaitStatusEnvelope{Email: email, IsVerified: ok})
}

// Events streams a single EMAIL_VERIFIED or EXPIRED event as SSE.
func (h *WaitlistHandler) Events(w http.ResponseWriter, r *http.Request) {
	email := validate.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		writeServiceError(w, r, err, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.verification.Watch(r.Context(), email)
	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
			return
		}
	}
}

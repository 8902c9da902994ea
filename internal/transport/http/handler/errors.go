package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-waitlist-api/internal/domain"
)

const internalError = "Internal server error"

// writeServiceError maps service errors to a status code. msgs overrides the
// client-facing message per sentinel; anything unmapped gets a generic body
// and the detail goes to the log only.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msgs map[error]string) {
	var av *domain.AlreadyVerifiedError
	if errors.As(err, &av) {
		writeJSON(w, http.StatusConflict, MessageEnvelope{Error: "This email is already verified!", RefCode: av.RefCode})
		return
	}
	for target, msg := range msgs {
		if errors.Is(err, target) {
			writeError(w, statusFor(err), msg)
			return
		}
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, internalError)
		return
	}
	writeError(w, status, http.StatusText(status))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

package domain

// Event types delivered to waiting tabs.
const (
	EventEmailVerified = "EMAIL_VERIFIED"
	EventExpired       = "EXPIRED"
)

// VerificationEvent is the best-effort notification emitted when an entrant
// finishes verification.
type VerificationEvent struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Handshake states observed by the confirmation page.
const (
	StateConfirmed       = "confirmed"
	StateAlreadyVerified = "already_verified"
	StateSuccess         = "success"
)

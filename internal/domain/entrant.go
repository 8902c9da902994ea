package domain

import "time"

// Entrant is a waitlist signup, keyed by its normalized email.
type Entrant struct {
	Email      string     `json:"email" dynamodbav:"email"`
	RefCode    string     `json:"ref_code" dynamodbav:"ref_code"`
	ReferredBy *string    `json:"referred_by,omitempty" dynamodbav:"referred_by,omitempty"`
	IsVerified bool       `json:"is_verified" dynamodbav:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
	UserID     *string    `json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at" dynamodbav:"created_at"`
}

type JoinWaitlistRequest struct {
	Email      string `json:"email"`
	ReferredBy string `json:"referredBy"`
}

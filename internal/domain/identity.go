package domain

import "time"

// Identity is the auth principal behind an email. At most one exists per email.
type Identity struct {
	IdentityID       string     `json:"id" dynamodbav:"identity_id"`
	Email            string     `json:"email" dynamodbav:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty" dynamodbav:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty" dynamodbav:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time  `json:"updated" dynamodbav:"updated_at"`
}

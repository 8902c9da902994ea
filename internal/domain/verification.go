package domain

// Verification types. Action links carry "signup" or "magiclink"; one-time
// passcodes use "otp".
const (
	VerificationSignup    = "signup"
	VerificationMagicLink = "magiclink"
	VerificationOTP       = "otp"
)

// Verification stores a pending action-link token or OTP.
// PK: subject (token hash for links, identity id for OTPs), SK: type.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type Verification struct {
	Subject    string `json:"subject" dynamodbav:"subject"`
	Type       string `json:"type" dynamodbav:"type"`
	IdentityID string `json:"identity_id" dynamodbav:"identity_id"`
	Email      string `json:"email" dynamodbav:"email"`
	Code       string `json:"-" dynamodbav:"code"` // bcrypt hash, OTP only
	Attempts   int    `json:"-" dynamodbav:"attempts"`
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"`
}

// IsActionLink reports whether t is a link type accepted by token redemption.
func IsActionLink(t string) bool {
	return t == VerificationSignup || t == VerificationMagicLink
}

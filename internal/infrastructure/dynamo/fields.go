package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmail            = "email"
	fieldRefCode          = "ref_code"
	fieldReferredBy       = "referred_by"
	fieldIsVerified       = "is_verified"
	fieldVerifiedAt       = "verified_at"
	fieldUserID           = "user_id"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
	fieldIdentityID       = "identity_id"
	fieldEmailConfirmedAt = "email_confirmed_at"
	fieldLastSignInAt     = "last_sign_in_at"
	fieldSessionID        = "session_id"
	fieldEnable           = "enable"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldSubject          = "subject"
	fieldType             = "type"
	fieldIsActive         = "is_active"
	fieldCode             = "code"
	fieldAttempts         = "attempts"
)

// emailGuardPrefix marks the uniqueness-guard rows stored alongside identities.
const emailGuardPrefix = "email#"

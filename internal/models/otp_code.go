package models

import "time"

// OTP purposes. Identity verifies the registrant's own email, authorization
// is requested against an admin's email during staff signup, password_reset
// backs the forgot-password flow.
const (
	OtpPurposeIdentity      = "identity"
	OtpPurposeAuthorization = "authorization"
	OtpPurposePasswordReset = "password_reset"
)

// ValidOtpPurpose reports whether p is a known OTP purpose.
func ValidOtpPurpose(p string) bool {
	return p == OtpPurposeIdentity || p == OtpPurposeAuthorization || p == OtpPurposePasswordReset
}

// OtpCode holds the single current code for an (email, purpose) pair.
// Issuance upserts the row; there is no multi-code history.
type OtpCode struct {
	Email        string    `json:"email" db:"email"`
	Purpose      string    `json:"purpose" db:"purpose"`
	Code         string    `json:"-" db:"code"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	AttemptCount int       `json:"attempt_count" db:"attempt_count"`
	LastSentAt   time.Time `json:"last_sent_at" db:"last_sent_at"`
}

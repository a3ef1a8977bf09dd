package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors the handlers translate into HTTP statuses. Each rejected
// mutation carries a specific reason so the caller can correct input.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrOtpNotFound = errors.New("invalid verification code")
	ErrOtpExpired  = errors.New("verification code has expired")

	ErrIdentityOtpInvalid      = errors.New("missing or invalid identity verification code")
	ErrAuthorizationOtpInvalid = errors.New("missing or invalid admin authorization code")
	ErrAdminNotFound           = errors.New("admin account not found")

	ErrNoFieldsToUpdate  = errors.New("no return fields to update")
	ErrOrderViolation    = errors.New("GSTR-3B cannot be filed before GSTR-1 for the same month")
	ErrSequenceViolation = errors.New("previous month's returns must be filed first")

	ErrIncompleteReassignment = errors.New("every assigned client must be reassigned")
)

// ConflictError reports a uniqueness collision (GSTIN, email, username).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError builds a ConflictError with a formatted message.
func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// RateLimitedError reports an OTP issuance attempted inside the backoff
// window, with the seconds remaining before a reissue is allowed.
type RateLimitedError struct {
	RetryAfter int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %d seconds", e.RetryAfter)
}

// ReassignRequiredError is the phase-1 gate signal of the staff deletion
// workflow: not a failure, but an instruction to collect reassignment
// choices for the listed clients and resubmit.
type ReassignRequiredError struct {
	ClientIDs []uuid.UUID
}

func (e *ReassignRequiredError) Error() string {
	return fmt.Sprintf("%d assigned clients must be reassigned before deletion", len(e.ClientIDs))
}

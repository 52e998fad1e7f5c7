package model

import "time"

// LoginAttemptType classifies a login audit entry
type LoginAttemptType string

const (
	LoginAttemptLogin         LoginAttemptType = "LOGIN"
	LoginAttemptFailedLogin   LoginAttemptType = "FAILED_LOGIN"
	LoginAttemptLogout        LoginAttemptType = "LOGOUT"
	LoginAttemptLocked        LoginAttemptType = "LOCKED"
	LoginAttemptPasswordReset LoginAttemptType = "PASSWORD_RESET"
)

// Failure reason constants recorded on failed attempts
const (
	FailureReasonInvalidUsername = "INVALID_USERNAME"
	FailureReasonInvalidPassword = "INVALID_PASSWORD"
	FailureReasonAccountLocked   = "ACCOUNT_LOCKED"
)

// LoginLog is an append-only record of an authentication attempt.
// UserID and Username are both kept so the trail survives user deletion.
// Rows are never updated or deleted.
type LoginLog struct {
	ID            string           `json:"id"`
	UserID        *string          `json:"userId,omitempty"`
	Username      *string          `json:"username,omitempty"`
	AttemptType   LoginAttemptType `json:"attemptType"`
	Success       bool             `json:"success"`
	FailureReason *string          `json:"failureReason,omitempty"`
	SessionID     *string          `json:"sessionId,omitempty"`
	IPAddress     *string          `json:"ipAddress,omitempty"`
	UserAgent     *string          `json:"userAgent,omitempty"`
	MFAUsed       bool             `json:"mfaUsed"`
	MFAMethod     *string          `json:"mfaMethod,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

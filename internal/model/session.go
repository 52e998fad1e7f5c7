package model

import "time"

// SessionStatus represents the lifecycle state of a session.
// EXPIRED and REVOKED are terminal.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusExpired SessionStatus = "EXPIRED"
	SessionStatusRevoked SessionStatus = "REVOKED"
)

// Session represents a bearer-token session. TokenHash stores the SHA-256
// of the opaque token; the plaintext is returned to the caller exactly once
// at creation and is never recoverable from storage.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	TokenHash string `json:"-"`

	TenantID    *string       `json:"tenantId,omitempty"`
	Fingerprint *string       `json:"-"`
	UserAgent   *string       `json:"userAgent,omitempty"`
	IPAddress   *string       `json:"ipAddress,omitempty"`
	Status      SessionStatus `json:"status"`

	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`

	MFAVerified   bool       `json:"mfaVerified"`
	MFAVerifiedAt *time.Time `json:"mfaVerifiedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsExpired checks the temporal bound only; callers that observe an expired
// ACTIVE session transition it to EXPIRED (lazy expiry).
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsActive reports whether the session is usable right now
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive && !s.IsExpired()
}

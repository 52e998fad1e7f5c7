package model

import (
	"time"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusLocked    UserStatus = "LOCKED"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserType distinguishes platform operators from tenant-scoped users
type UserType string

const (
	UserTypeMaster UserType = "MASTER"
	UserTypeTenant UserType = "TENANT"
	UserTypeSystem UserType = "SYSTEM"
)

// User represents the core credential record
type User struct {
	ID           string     `json:"id"`
	UserType     UserType   `json:"userType"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FullName     string     `json:"fullName"`
	PasswordHash string     `json:"-"` // never expose password hash
	SaltKey      string     `json:"-"` // per-user salt, concatenated with the plaintext before hashing
	Status       UserStatus `json:"status"`

	MFAEnabled bool    `json:"mfaEnabled"`
	MFASecret  *string `json:"-"`

	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP         *string    `json:"-"`
	PasswordChangedAt   *time.Time `json:"-"`

	Timezone  string     `json:"timezone"`
	Locale    string     `json:"locale"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
}

// IsLocked reports whether the account is currently locked.
// A LOCKED status whose locked_until has lapsed is not considered locked;
// the login flow self-heals it back to ACTIVE.
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	if u.LockedUntil == nil {
		return true
	}
	return time.Now().Before(*u.LockedUntil)
}

// LockExpired reports whether a previously applied lock has lapsed
func (u *User) LockExpired() bool {
	return u.Status == UserStatusLocked && u.LockedUntil != nil && !time.Now().Before(*u.LockedUntil)
}

// IsActive checks if the user account is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/model"
)

const userColumns = `id, user_type, email, username, full_name, password_hash, salt_key, status,
	mfa_enabled, mfa_secret, failed_login_attempts, locked_until,
	last_login_at, last_login_ip, password_changed_at, timezone, locale,
	created_at, updated_at`

// UserRepository handles user data persistence
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, user_type, email, username, full_name, password_hash, salt_key, status,
		                   mfa_enabled, failed_login_attempts, timezone, locale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.UserType,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.SaltKey,
		user.Status,
		user.MFAEnabled,
		user.FailedLoginAttempts,
		user.Timezone,
		user.Locale,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateDBError(err))
	}
	return nil
}

// GetByID retrieves a user by ID (excludes soft-deleted)
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsernameOrEmail retrieves a user matching either the login account
// name or the email address (case-sensitive exact match)
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE (username = $1 OR email = $1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, usernameOrEmail))
}

// ExistsByEmail checks if a user with the given email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ExistsByUsername checks if a user with the given username exists
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// IncrementFailedAttempts increments the failed login counter and returns
// the new value. Concurrent increments are last-write-wins at commit; the
// lockout threshold is best-effort, not an exact count.
func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING failed_login_attempts
	`
	var attempts int
	if err := r.db.QueryRowContext(ctx, query, id, time.Now()).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}
	return attempts, nil
}

// ResetFailedAttempts clears the failed login counter and any lock
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	query := `UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	return nil
}

// LockUntil locks the user account until the specified time
func (r *UserRepository) LockUntil(ctx context.Context, id string, until time.Time) error {
	query := `UPDATE users SET locked_until = $1, status = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, until, model.UserStatusLocked, time.Now(), id); err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

// Unlock restores an account to ACTIVE and clears lockout state. Used by
// the lazy self-heal when a lock has lapsed.
func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET status = $1, locked_until = NULL, failed_login_attempts = 0, updated_at = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, model.UserStatusActive, time.Now(), id); err != nil {
		return fmt.Errorf("failed to unlock user: %w", err)
	}
	return nil
}

// RecordLogin sets the success-path audit fields and clears the counter
func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time, ip string) error {
	query := `
		UPDATE users
		SET last_login_at = $1, last_login_ip = $2, failed_login_attempts = 0, updated_at = $1
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, at, ip, id); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// UpdateStatus updates the user's status
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status model.UserStatus) error {
	query := `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash updates the password hash, salt, and change timestamp
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash, salt string) error {
	query := `
		UPDATE users
		SET password_hash = $1, salt_key = $2, password_changed_at = $3, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, hash, salt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanUser scans a single user row
func scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.UserType,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.SaltKey,
		&user.Status,
		&user.MFAEnabled,
		&user.MFASecret,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.LastLoginIP,
		&user.PasswordChangedAt,
		&user.Timezone,
		&user.Locale,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

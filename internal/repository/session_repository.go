package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/model"
)

const sessionColumns = `id, user_id, token_hash, tenant_id, fingerprint, user_agent, ip_address,
	status, expires_at, last_activity_at, mfa_verified, mfa_verified_at, created_at, updated_at`

// SessionFilter narrows session listings
type SessionFilter struct {
	UserID    string
	Username  string
	Status    model.SessionStatus
	IPAddress string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Size      int
}

// SessionStats aggregates session counts by state
type SessionStats struct {
	ActiveSessions  int `json:"activeSessions"`
	ExpiredSessions int `json:"expiredSessions"`
	RevokedSessions int `json:"revokedSessions"`
	UniqueUsers     int `json:"uniqueUsers"`
	UniqueIPs       int `json:"uniqueIps"`
}

// SessionRepository handles session persistence
type SessionRepository struct {
	db database.Querier
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db database.Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, tenant_id, fingerprint, user_agent, ip_address,
		                      status, expires_at, last_activity_at, mfa_verified, mfa_verified_at,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.TenantID,
		s.Fingerprint,
		s.UserAgent,
		s.IPAddress,
		s.Status,
		s.ExpiresAt,
		s.LastActivityAt,
		s.MFAVerified,
		s.MFAVerifiedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetActiveByTokenHash retrieves an ACTIVE session by its token hash.
// Expiry is not checked here; the service applies lazy expiry.
func (r *SessionRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1 AND status = $2`
	return scanSession(r.db.QueryRowContext(ctx, query, tokenHash, model.SessionStatusActive))
}

// UpdateStatus transitions a session to the given state
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status model.SessionStatus) error {
	query := `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchActivity refreshes last_activity_at
func (r *SessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sessions SET last_activity_at = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to touch session activity: %w", err)
	}
	return nil
}

// ExtendExpiry pushes expires_at out and refreshes activity
func (r *SessionRepository) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	now := time.Now()
	query := `UPDATE sessions SET expires_at = $1, last_activity_at = $2, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, expiresAt, now, id); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// MarkMFAVerified records MFA verification on the session
func (r *SessionRepository) MarkMFAVerified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sessions SET mfa_verified = true, mfa_verified_at = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark session MFA verified: %w", err)
	}
	return nil
}

// RevokeUserSessions bulk-revokes a user's ACTIVE sessions, optionally
// excluding one token hash ("log out everywhere else"). Returns the count.
func (r *SessionRepository) RevokeUserSessions(ctx context.Context, userID, excludeTokenHash string) (int, error) {
	query := `
		UPDATE sessions
		SET status = $1, updated_at = $2
		WHERE user_id = $3 AND status = $4 AND ($5 = '' OR token_hash <> $5)
	`
	result, err := r.db.ExecContext(ctx, query,
		model.SessionStatusRevoked, time.Now(), userID, model.SessionStatusActive, excludeTokenHash)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	count, _ := result.RowsAffected()
	return int(count), nil
}

// ExpireStale transitions all lapsed ACTIVE sessions to EXPIRED.
// Housekeeping only; lazy expiry already guarantees correctness.
func (r *SessionRepository) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE sessions SET status = $1, updated_at = $2 WHERE status = $3 AND expires_at < $2`
	result, err := r.db.ExecContext(ctx, query, model.SessionStatusExpired, now, model.SessionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale sessions: %w", err)
	}
	count, _ := result.RowsAffected()
	return int(count), nil
}

// ListActiveByUser returns a user's live sessions, most recent activity first
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status = $2 AND expires_at > $3
		ORDER BY last_activity_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, model.SessionStatusActive, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// List returns sessions matching the filter with pagination, newest first,
// along with the total match count
func (r *SessionRepository) List(ctx context.Context, f SessionFilter) ([]*model.Session, int, error) {
	where, args := buildSessionWhere(f)

	countQuery := `SELECT COUNT(*) FROM sessions s JOIN users u ON u.id = s.user_id` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.Size
	if size < 1 || size > 100 {
		size = 20
	}

	cols := make([]string, 0, 14)
	for _, c := range strings.Split(sessionColumns, ",") {
		cols = append(cols, "s."+strings.TrimSpace(c))
	}
	listQuery := `SELECT ` + strings.Join(cols, ", ") +
		` FROM sessions s JOIN users u ON u.id = s.user_id` + where +
		` ORDER BY s.created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Stats returns aggregate session statistics
func (r *SessionRepository) Stats(ctx context.Context) (*SessionStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'EXPIRED'),
			COUNT(*) FILTER (WHERE status = 'REVOKED'),
			COUNT(DISTINCT user_id) FILTER (WHERE status = 'ACTIVE'),
			COUNT(DISTINCT ip_address) FILTER (WHERE status = 'ACTIVE')
		FROM sessions
	`
	var stats SessionStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.ActiveSessions,
		&stats.ExpiredSessions,
		&stats.RevokedSessions,
		&stats.UniqueUsers,
		&stats.UniqueIPs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return &stats, nil
}

func buildSessionWhere(f SessionFilter) (string, []interface{}) {
	clauses := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.UserID != "" {
		add("s.user_id = ?", f.UserID)
	}
	if f.Username != "" {
		add("u.username LIKE ?", "%"+f.Username+"%")
	}
	if f.Status != "" {
		add("s.status = ?", f.Status)
	}
	if f.IPAddress != "" {
		add("s.ip_address LIKE ?", "%"+f.IPAddress+"%")
	}
	if f.StartDate != nil {
		add("s.created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		add("s.created_at <= ?", *f.EndDate)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanSession(row *sql.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TokenHash,
		&s.TenantID,
		&s.Fingerprint,
		&s.UserAgent,
		&s.IPAddress,
		&s.Status,
		&s.ExpiresAt,
		&s.LastActivityAt,
		&s.MFAVerified,
		&s.MFAVerifiedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	for rows.Next() {
		var s model.Session
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.TokenHash,
			&s.TenantID,
			&s.Fingerprint,
			&s.UserAgent,
			&s.IPAddress,
			&s.Status,
			&s.ExpiresAt,
			&s.LastActivityAt,
			&s.MFAVerified,
			&s.MFAVerifiedAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

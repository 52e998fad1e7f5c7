package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/model"
)

const loginLogColumns = `id, user_id, username, attempt_type, success, failure_reason,
	session_id, ip_address, user_agent, mfa_used, mfa_method, created_at`

// LoginLogFilter narrows login history listings
type LoginLogFilter struct {
	UserID      string
	Username    string
	AttemptType model.LoginAttemptType
	Success     *bool
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	Size        int
}

// LoginLogRepository handles the append-only login audit trail.
// There is no update or delete path.
type LoginLogRepository struct {
	db database.Querier
}

// NewLoginLogRepository creates a new LoginLogRepository
func NewLoginLogRepository(db database.Querier) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

// Create appends a login log entry
func (r *LoginLogRepository) Create(ctx context.Context, l *model.LoginLog) error {
	query := `
		INSERT INTO login_logs (id, user_id, username, attempt_type, success, failure_reason,
		                        session_id, ip_address, user_agent, mfa_used, mfa_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.UserID,
		l.Username,
		l.AttemptType,
		l.Success,
		l.FailureReason,
		l.SessionID,
		l.IPAddress,
		l.UserAgent,
		l.MFAUsed,
		l.MFAMethod,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login log: %w", err)
	}
	return nil
}

// List returns login log entries matching the filter, newest first,
// along with the total match count
func (r *LoginLogRepository) List(ctx context.Context, f LoginLogFilter) ([]*model.LoginLog, int, error) {
	where, args := buildLoginLogWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count login logs: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.Size
	if size < 1 || size > 100 {
		size = 20
	}

	query := `SELECT ` + loginLogColumns + ` FROM login_logs` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list login logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*model.LoginLog, 0)
	for rows.Next() {
		var l model.LoginLog
		err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.Username,
			&l.AttemptType,
			&l.Success,
			&l.FailureReason,
			&l.SessionID,
			&l.IPAddress,
			&l.UserAgent,
			&l.MFAUsed,
			&l.MFAMethod,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan login log: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate login logs: %w", err)
	}
	return logs, total, nil
}

func buildLoginLogWhere(f LoginLogFilter) (string, []interface{}) {
	clauses := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.Username != "" {
		add("username LIKE ?", "%"+f.Username+"%")
	}
	if f.AttemptType != "" {
		add("attempt_type = ?", f.AttemptType)
	}
	if f.Success != nil {
		add("success = ?", *f.Success)
	}
	if f.StartDate != nil {
		add("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= ?", *f.EndDate)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

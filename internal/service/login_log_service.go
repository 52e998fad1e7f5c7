package service

import (
	"context"
	"time"

	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

// LoginLogService appends to the login audit trail. Every write is
// best-effort: a failure here is logged server-side and never surfaced,
// so an audit problem can never mask the authentication outcome.
type LoginLogService struct {
	loginLogRepo *repository.LoginLogRepository
	log          *logger.Logger
}

// NewLoginLogService creates a new LoginLogService
func NewLoginLogService(loginLogRepo *repository.LoginLogRepository, log *logger.Logger) *LoginLogService {
	return &LoginLogService{
		loginLogRepo: loginLogRepo,
		log:          log.WithComponent("login_log_service"),
	}
}

// LogSuccess records a successful login bound to a session
func (s *LoginLogService) LogSuccess(ctx context.Context, userID, username, sessionID string, client ClientContext) {
	s.record(ctx, &userID, &username, model.LoginAttemptLogin, true, "", &sessionID, client)
}

// LogFailure records a failed login attempt. userID is nil when the
// username did not resolve to an account.
func (s *LoginLogService) LogFailure(ctx context.Context, userID *string, username, reason string, client ClientContext) {
	s.record(ctx, userID, &username, model.LoginAttemptFailedLogin, false, reason, nil, client)
}

// LogLocked records the lockout event emitted when the failure threshold
// is crossed
func (s *LoginLogService) LogLocked(ctx context.Context, userID, username string, client ClientContext) {
	s.record(ctx, &userID, &username, model.LoginAttemptLocked, false, model.FailureReasonAccountLocked, nil, client)
}

// LogLogout records a session logout
func (s *LoginLogService) LogLogout(ctx context.Context, userID, username, sessionID string, client ClientContext) {
	s.record(ctx, &userID, &username, model.LoginAttemptLogout, true, "", &sessionID, client)
}

// LogPasswordReset records a completed password reset
func (s *LoginLogService) LogPasswordReset(ctx context.Context, userID, username string, client ClientContext) {
	s.record(ctx, &userID, &username, model.LoginAttemptPasswordReset, true, "", nil, client)
}

// List returns login history matching the filter plus the total count
func (s *LoginLogService) List(ctx context.Context, f repository.LoginLogFilter) ([]*model.LoginLog, int, error) {
	return s.loginLogRepo.List(ctx, f)
}

func (s *LoginLogService) record(ctx context.Context, userID, username *string, attemptType model.LoginAttemptType, success bool, reason string, sessionID *string, client ClientContext) {
	entry := &model.LoginLog{
		ID:          generateID("llg"),
		UserID:      userID,
		Username:    username,
		AttemptType: attemptType,
		Success:     success,
		SessionID:   sessionID,
		CreatedAt:   time.Now(),
	}
	if reason != "" {
		entry.FailureReason = &reason
	}
	if client.IPAddress != "" {
		ip := client.IPAddress
		entry.IPAddress = &ip
	}
	if client.UserAgent != "" {
		ua := client.UserAgent
		entry.UserAgent = &ua
	}

	if err := s.loginLogRepo.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("attempt_type", string(attemptType)).Msg("failed to write login log")
	}
}

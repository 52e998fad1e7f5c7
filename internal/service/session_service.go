package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tenantry/tenantry/internal/auth"
	"github.com/tenantry/tenantry/internal/config"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

// Session service errors
var (
	// ErrSessionInvalid covers not-found, expired, and revoked tokens
	// uniformly; callers treat all three as unauthorized.
	ErrSessionInvalid = errors.New("session token is invalid or expired")
)

// ClientContext carries request-scoped client metadata into the service layer
type ClientContext struct {
	IPAddress string
	UserAgent string
}

// SessionService issues, validates, and revokes opaque bearer-token
// sessions. Only the SHA-256 of a token is ever stored; the plaintext is
// handed to the caller once at creation. Validity is purely a database
// lookup, so commits are immediately authoritative.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	cfg         *config.Config
	log         *logger.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo *repository.SessionRepository, cfg *config.Config, log *logger.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		cfg:         cfg,
		log:         log.WithComponent("session_service"),
	}
}

// CreateSession generates a random token, persists a session holding only
// the token's hash, and returns the plaintext token exactly once.
func (s *SessionService) CreateSession(ctx context.Context, userID string, client ClientContext, ttl time.Duration) (string, *model.Session, error) {
	if ttl <= 0 {
		ttl = s.cfg.Security.Session.TTL
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:             generateID("ses"),
		UserID:         userID,
		TokenHash:      auth.HashToken(token),
		Status:         model.SessionStatusActive,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if client.IPAddress != "" {
		ip := client.IPAddress
		session.IPAddress = &ip
	}
	if client.UserAgent != "" {
		ua := client.UserAgent
		session.UserAgent = &ua
	}
	if fp := fingerprint(client); fp != "" {
		session.Fingerprint = &fp
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("session_id", session.ID).Msg("session created")

	return token, session, nil
}

// ValidateSession resolves a plaintext token to its ACTIVE session. A
// lapsed session is transitioned to EXPIRED here (lazy expiry) and treated
// as invalid. When updateActivity is set, last_activity_at is refreshed.
func (s *SessionService) ValidateSession(ctx context.Context, token string, updateActivity bool) (*model.Session, error) {
	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if session.IsExpired() {
		if err := s.sessionRepo.UpdateStatus(ctx, session.ID, model.SessionStatusExpired); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("failed to expire session")
		}
		return nil, ErrSessionInvalid
	}

	if updateActivity {
		now := time.Now()
		if err := s.sessionRepo.TouchActivity(ctx, session.ID, now); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("failed to update session activity")
		} else {
			session.LastActivityAt = now
		}
	}

	return session, nil
}

// RevokeSession transitions an ACTIVE session to REVOKED. Returns false,
// not an error, when the token does not resolve to an active session
// (already-revoked logout is an expected no-op).
func (s *SessionService) RevokeSession(ctx context.Context, token string) (bool, error) {
	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	if err := s.sessionRepo.UpdateStatus(ctx, session.ID, model.SessionStatusRevoked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}

	s.log.Info().Str("user_id", session.UserID).Str("session_id", session.ID).Msg("session revoked")
	return true, nil
}

// RevokeUserSessions revokes all of a user's ACTIVE sessions, optionally
// keeping the session identified by excludeToken ("log out everywhere
// else"). Returns the number revoked.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID, excludeToken string) (int, error) {
	excludeHash := ""
	if excludeToken != "" {
		excludeHash = auth.HashToken(excludeToken)
	}

	count, err := s.sessionRepo.RevokeUserSessions(ctx, userID, excludeHash)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	s.log.Info().Str("user_id", userID).Int("revoked", count).Msg("user sessions revoked")
	return count, nil
}

// ExtendSession pushes the expiry of a valid session out by ttl. Returns
// false when the token does not resolve to a valid session.
func (s *SessionService) ExtendSession(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = s.cfg.Security.Session.TTL
	}

	session, err := s.ValidateSession(ctx, token, false)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			return false, nil
		}
		return false, err
	}

	if err := s.sessionRepo.ExtendExpiry(ctx, session.ID, time.Now().Add(ttl)); err != nil {
		return false, fmt.Errorf("failed to extend session: %w", err)
	}
	return true, nil
}

// CleanupExpiredSessions sweeps lapsed ACTIVE sessions to EXPIRED.
// Housekeeping only; lazy expiry at validation time is what guarantees
// correctness.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	count, err := s.sessionRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info().Int("expired", count).Msg("expired stale sessions")
	}
	return count, nil
}

// GetUserActiveSessions lists a user's live sessions, most recent first
func (s *SessionService) GetUserActiveSessions(ctx context.Context, userID string) ([]*model.Session, error) {
	return s.sessionRepo.ListActiveByUser(ctx, userID)
}

// ListSessions returns sessions matching the filter plus the total count
func (s *SessionService) ListSessions(ctx context.Context, f repository.SessionFilter) ([]*model.Session, int, error) {
	return s.sessionRepo.List(ctx, f)
}

// GetStats returns aggregate session statistics
func (s *SessionService) GetStats(ctx context.Context) (*repository.SessionStats, error) {
	return s.sessionRepo.Stats(ctx)
}

// fingerprint derives a stable client fingerprint from request metadata
func fingerprint(client ClientContext) string {
	if client.UserAgent == "" && client.IPAddress == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(client.UserAgent + "|" + client.IPAddress))
	return hex.EncodeToString(sum[:])
}

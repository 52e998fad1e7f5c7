package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tenantry/tenantry/internal/auth"
	"github.com/tenantry/tenantry/internal/config"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			Password: config.PasswordConfig{
				MinLength:         8,
				Argon2Memory:      8 * 1024,
				Argon2Iterations:  1,
				Argon2Parallelism: 1,
			},
			Lockout: config.LockoutConfig{
				MaxFailedAttempts: 5,
				Duration:          30 * time.Minute,
			},
			Session: config.SessionConfig{TTL: 24 * time.Hour},
			AccessToken: config.AccessTokenConfig{
				Secret: "test-secret-at-least-32-characters",
				TTL:    30 * time.Minute,
				Issuer: "tenantry-test",
			},
		},
	}
}

func newSessionServiceForTest(t *testing.T) (*SessionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	svc := NewSessionService(repository.NewSessionRepository(db), testConfig(), logger.New("error", "json"))
	return svc, mock, func() { db.Close() }
}

func sessionRowColumns() []string {
	return []string{
		"id", "user_id", "token_hash", "tenant_id", "fingerprint", "user_agent", "ip_address",
		"status", "expires_at", "last_activity_at", "mfa_verified", "mfa_verified_at",
		"created_at", "updated_at",
	}
}

func activeSessionRow(tokenHash string, expiresAt time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(sessionRowColumns()).AddRow(
		"ses_test1", "usr_test1", tokenHash, nil, nil, nil, nil,
		model.SessionStatusActive, expiresAt, now, false, nil, now, now,
	)
}

func TestCreateSessionStoresOnlyTokenHash(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	token, session, err := svc.CreateSession(context.Background(), "usr_test1", ClientContext{
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	}, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if token == "" {
		t.Fatal("expected a plaintext token")
	}
	if session.TokenHash == token {
		t.Fatal("stored hash must not equal the plaintext token")
	}
	if session.TokenHash != auth.HashToken(token) {
		t.Fatal("stored hash must be the digest of the issued token")
	}
	if session.Status != model.SessionStatusActive {
		t.Fatalf("unexpected status: %s", session.Status)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateSessionReturnsActiveSession(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "some-session-token"
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WithArgs(auth.HashToken(token), string(model.SessionStatusActive)).
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectExec("SET last_activity_at").WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := svc.ValidateSession(context.Background(), token, true)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if session.ID != "ses_test1" || session.UserID != "usr_test1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateSessionExpiresLapsedSessionLazily(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "stale-session-token"
	// Row is still ACTIVE in the store but past its expiry
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WithArgs(auth.HashToken(token), string(model.SessionStatusActive)).
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(-time.Minute)))
	mock.ExpectExec("UPDATE sessions SET status").
		WithArgs(string(model.SessionStatusExpired), sqlmock.AnyArg(), "ses_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.ValidateSession(context.Background(), token, true)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateSessionUnknownToken(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	_, err := svc.ValidateSession(context.Background(), "unknown-token", false)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "live-session-token"
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectExec("UPDATE sessions SET status").
		WithArgs(string(model.SessionStatusRevoked), sqlmock.AnyArg(), "ses_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	revoked, err := svc.RevokeSession(context.Background(), token)
	if err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if !revoked {
		t.Fatal("expected session to be revoked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeSessionMissingIsNoop(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	revoked, err := svc.RevokeSession(context.Background(), "already-gone-token")
	if err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if revoked {
		t.Fatal("expected no-op for unknown token")
	}
}

func TestRevokeUserSessionsExcludesCurrent(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "current-session-token"
	mock.ExpectExec("UPDATE sessions").
		WithArgs(string(model.SessionStatusRevoked), sqlmock.AnyArg(),
			"usr_test1", string(model.SessionStatusActive), auth.HashToken(token)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := svc.RevokeUserSessions(context.Background(), "usr_test1", token)
	if err != nil {
		t.Fatalf("RevokeUserSessions: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revoked sessions, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE sessions SET status").
		WillReturnResult(sqlmock.NewResult(0, 7))

	count, err := svc.CleanupExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 expired sessions, got %d", count)
	}
}

func TestExtendSessionPushesExpiry(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "extendable-session-token"
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WithArgs(auth.HashToken(token), string(model.SessionStatusActive)).
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Minute)))
	mock.ExpectExec("UPDATE sessions SET expires_at").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ses_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	extended, err := svc.ExtendSession(context.Background(), token, time.Hour)
	if err != nil {
		t.Fatalf("ExtendSession: %v", err)
	}
	if !extended {
		t.Fatal("expected session to be extended")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExtendSessionUnknownToken(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	extended, err := svc.ExtendSession(context.Background(), "unknown-token", time.Hour)
	if err != nil {
		t.Fatalf("ExtendSession: %v", err)
	}
	if extended {
		t.Fatal("expected no extension for unknown token")
	}
}

func TestExtendSessionLapsedToken(t *testing.T) {
	svc, mock, cleanup := newSessionServiceForTest(t)
	defer cleanup()

	token := "lapsed-session-token"
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WithArgs(auth.HashToken(token), string(model.SessionStatusActive)).
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(-time.Minute)))
	mock.ExpectExec("UPDATE sessions SET status").
		WithArgs(string(model.SessionStatusExpired), sqlmock.AnyArg(), "ses_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	extended, err := svc.ExtendSession(context.Background(), token, time.Hour)
	if err != nil {
		t.Fatalf("ExtendSession: %v", err)
	}
	if extended {
		t.Fatal("expected no extension for a lapsed session")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

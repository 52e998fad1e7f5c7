package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pquerna/otp/totp"
	"github.com/tenantry/tenantry/internal/auth"
	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

func newAuthServiceForTest(t *testing.T) (*AuthService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	pg := &database.Postgres{DB: db}
	cfg := testConfig()
	log := logger.New("error", "json")

	tokenSvc, err := auth.NewTokenService(cfg.Security.AccessToken)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	sessionSvc := NewSessionService(repository.NewSessionRepository(pg), cfg, log)
	loginLogSvc := NewLoginLogService(repository.NewLoginLogRepository(pg), log)
	authSvc := NewAuthService(
		pg,
		repository.NewUserRepository(pg),
		repository.NewTenantRepository(pg),
		sessionSvc,
		loginLogSvc,
		tokenSvc,
		cfg,
		log,
	)
	return authSvc, mock, func() { db.Close() }
}

func userRowColumns() []string {
	return []string{
		"id", "user_type", "email", "username", "full_name", "password_hash", "salt_key", "status",
		"mfa_enabled", "mfa_secret", "failed_login_attempts", "locked_until",
		"last_login_at", "last_login_ip", "password_changed_at", "timezone", "locale",
		"created_at", "updated_at",
	}
}

type testUser struct {
	passwordHash string
	saltKey      string
	status       model.UserStatus
	attempts     int
	lockedUntil  *time.Time
	mfaEnabled   bool
	mfaSecret    interface{}
}

func (u testUser) row() *sqlmock.Rows {
	now := time.Now()
	var lockedUntil interface{}
	if u.lockedUntil != nil {
		lockedUntil = *u.lockedUntil
	}
	return sqlmock.NewRows(userRowColumns()).AddRow(
		"usr_test1", string(model.UserTypeTenant), "alice@example.com", "alice", "Alice Tester",
		u.passwordHash, u.saltKey, string(u.status),
		u.mfaEnabled, u.mfaSecret, u.attempts, lockedUntil,
		nil, nil, nil, "UTC", "en-US",
		now, now,
	)
}

func hashForTest(t *testing.T, password, salt string) string {
	t.Helper()
	hash, err := auth.HashPassword(password+salt, auth.NewParams(8*1024, 1, 1))
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func TestLoginSuccess(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	salt := "0123456789abcdef0123456789abcdef"
	user := testUser{
		passwordHash: hashForTest(t, "password123", salt),
		saltKey:      salt,
		status:       model.UserStatusActive,
	}

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WithArgs("alice").
		WillReturnRows(user.row())
	mock.ExpectExec("SET last_login_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	resp, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "password123",
		Client:          ClientContext{IPAddress: "203.0.113.7", UserAgent: "test-agent"},
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if resp.SessionToken == "" {
		t.Fatal("expected a session token")
	}
	if resp.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if resp.UserID != "usr_test1" || resp.Username != "alice" {
		t.Fatalf("unexpected identity in response: %+v", resp)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future session expiry")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WillReturnRows(sqlmock.NewRows(userRowColumns()))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "nobody",
		Password:        "whatever1",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	salt := "0123456789abcdef0123456789abcdef"
	user := testUser{
		passwordHash: hashForTest(t, "password123", salt),
		saltKey:      salt,
		status:       model.UserStatusActive,
		attempts:     2,
	}

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WillReturnRows(user.row())
	mock.ExpectQuery("RETURNING failed_login_attempts").
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(3))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "wrong password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Below the threshold, no lock is applied
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginLocksAccountAtThreshold(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	salt := "0123456789abcdef0123456789abcdef"
	user := testUser{
		passwordHash: hashForTest(t, "password123", salt),
		saltKey:      salt,
		status:       model.UserStatusActive,
		attempts:     4,
	}

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WillReturnRows(user.row())
	mock.ExpectQuery("RETURNING failed_login_attempts").
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(5))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("SET locked_until").
		WithArgs(sqlmock.AnyArg(), string(model.UserStatusLocked), sqlmock.AnyArg(), "usr_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "wrong password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginRejectsLockedAccount(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	until := time.Now().Add(10 * time.Minute)
	user := testUser{
		passwordHash: "irrelevant",
		saltKey:      "irrelevant",
		status:       model.UserStatusLocked,
		attempts:     5,
		lockedUntil:  &until,
	}

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WillReturnRows(user.row())
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "password123",
	})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	// The password is never checked while the lock holds
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginSelfHealsLapsedLock(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	salt := "0123456789abcdef0123456789abcdef"
	until := time.Now().Add(-time.Minute)
	user := testUser{
		passwordHash: hashForTest(t, "password123", salt),
		saltKey:      salt,
		status:       model.UserStatusLocked,
		attempts:     5,
		lockedUntil:  &until,
	}

	mock.ExpectQuery(`FROM users WHERE \(username = \$1 OR email = \$1\)`).
		WillReturnRows(user.row())
	mock.ExpectExec(`SET status = \$1, locked_until = NULL`).
		WithArgs(string(model.UserStatusActive), sqlmock.AnyArg(), "usr_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_login_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	resp, err := svc.Login(context.Background(), LoginRequest{
		UsernameOrEmail: "alice",
		Password:        "password123",
	})
	if err != nil {
		t.Fatalf("Login after lapsed lock: %v", err)
	}
	if resp.SessionToken == "" {
		t.Fatal("expected a session token after self-heal")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignupMasterUser(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp, err := svc.Signup(context.Background(), SignupRequest{
		UserType: model.UserTypeMaster,
		Email:    "admin@example.com",
		Username: "admin",
		Password: "a sensible passphrase",
		FullName: "Site Admin",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if resp.Email != "admin@example.com" || resp.Username != "admin" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ID == "" {
		t.Fatal("expected a generated user ID")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignupTenantUserCreatesTenantAtomically(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM tenants WHERE tenant_name`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO tenants").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO tenant_users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp, err := svc.Signup(context.Background(), SignupRequest{
		UserType:        model.UserTypeTenant,
		Email:           "owner@example.com",
		Username:        "owner",
		Password:        "a sensible passphrase",
		FullName:        "Tenant Owner",
		TenantName:      "Acme Corp",
		CreateNewTenant: true,
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if resp.Username != "owner" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignupDuplicateEmailRollsBack(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Signup(context.Background(), SignupRequest{
		UserType: model.UserTypeMaster,
		Email:    "admin@example.com",
		Username: "admin",
		Password: "a sensible passphrase",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, err := svc.Signup(context.Background(), SignupRequest{
		UserType: model.UserTypeMaster,
		Email:    "admin@example.com",
		Username: "admin",
		Password: "short",
	})
	if !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "live-session-token"
	hash := auth.HashToken(token)

	// Logout validates the session, revokes it, then writes the audit entry
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(hash, time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(hash, time.Now().Add(time.Hour)))
	mock.ExpectExec("UPDATE sessions SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(testUser{passwordHash: "x", saltKey: "x", status: model.UserStatusActive}.row())
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := svc.Logout(context.Background(), token, ClientContext{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLogoutInvalidTokenFails(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(sessionRowColumns()))

	err := svc.Logout(context.Background(), "revoked-or-unknown-token", ClientContext{})
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

// wrongTOTPCode returns a code outside every window the validator accepts
func wrongTOTPCode(t *testing.T, secret string) string {
	t.Helper()
	now := time.Now()
	valid := map[string]bool{}
	for _, offset := range []time.Duration{-time.Minute, -30 * time.Second, 0, 30 * time.Second, time.Minute} {
		code, err := totp.GenerateCode(secret, now.Add(offset))
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333", "444444", "555555"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatal("no invalid code candidate found")
	return ""
}

func TestVerifySessionMFAMarksSessionVerified(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "mfa-session-token"
	user := testUser{
		passwordHash: "hash",
		saltKey:      "salt",
		status:       model.UserStatusActive,
		mfaEnabled:   true,
		mfaSecret:    testTOTPSecret,
	}

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WithArgs(auth.HashToken(token), string(model.SessionStatusActive)).
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(user.row())
	mock.ExpectExec("SET mfa_verified").
		WithArgs(sqlmock.AnyArg(), "ses_test1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	code, err := totp.GenerateCode(testTOTPSecret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	if err := svc.VerifySessionMFA(context.Background(), token, code); err != nil {
		t.Fatalf("VerifySessionMFA: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifySessionMFARejectsWrongCode(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "mfa-session-token"
	user := testUser{
		passwordHash: "hash",
		saltKey:      "salt",
		status:       model.UserStatusActive,
		mfaEnabled:   true,
		mfaSecret:    testTOTPSecret,
	}

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(user.row())

	err := svc.VerifySessionMFA(context.Background(), token, wrongTOTPCode(t, testTOTPSecret))
	if !errors.Is(err, ErrMFACodeInvalid) {
		t.Fatalf("expected ErrMFACodeInvalid, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifySessionMFANotEnabled(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "mfa-session-token"
	user := testUser{
		passwordHash: "hash",
		saltKey:      "salt",
		status:       model.UserStatusActive,
	}

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(user.row())

	err := svc.VerifySessionMFA(context.Background(), token, "123456")
	if !errors.Is(err, ErrMFANotEnabled) {
		t.Fatalf("expected ErrMFANotEnabled, got %v", err)
	}
}

func TestChangePasswordRotatesCredentialAndRevokesOthers(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "current-session-token"
	salt := "0123456789abcdef0123456789abcdef"
	user := testUser{
		passwordHash: hashForTest(t, "old password1", salt),
		saltKey:      salt,
		status:       model.UserStatusActive,
	}

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(user.row())
	mock.ExpectExec("SET password_hash").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET failed_login_attempts = 0").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions").
		WithArgs(string(model.SessionStatusRevoked), sqlmock.AnyArg(),
			"usr_test1", string(model.SessionStatusActive), auth.HashToken(token)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO login_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.ChangePassword(context.Background(), token, "old password1", "a brand new passphrase",
		ClientContext{IPAddress: "203.0.113.7", UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	token := "current-session-token"
	salt := "0123456789abcdef0123456789abcdef"
	user := testUser{
		passwordHash: hashForTest(t, "old password1", salt),
		saltKey:      salt,
		status:       model.UserStatusActive,
	}

	mock.ExpectQuery("FROM sessions WHERE token_hash").
		WillReturnRows(activeSessionRow(auth.HashToken(token), time.Now().Add(time.Hour)))
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(user.row())

	err := svc.ChangePassword(context.Background(), token, "not the password", "a brand new passphrase",
		ClientContext{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSignupUniqueViolationAtInsertMapsToConflict(t *testing.T) {
	svc, mock, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	// A concurrent signup can slip between the exists check and the
	// insert; the unique index reports it as a constraint violation.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE username`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_users_email"})
	mock.ExpectRollback()

	_, err := svc.Signup(context.Background(), SignupRequest{
		UserType: model.UserTypeMaster,
		Email:    "race@example.com",
		Username: "racer",
		Password: "a sensible passphrase",
		FullName: "Race Tester",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

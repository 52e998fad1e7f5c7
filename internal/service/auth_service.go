package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/tenantry/tenantry/internal/auth"
	"github.com/tenantry/tenantry/internal/config"
	"github.com/tenantry/tenantry/internal/database"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

// Common service errors. Validation conflicts and auth failures are
// sentinel values; the handler layer translates them to status codes once.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already in use")
	ErrTenantNameExists   = errors.New("tenant name already exists")
	ErrTenantNotFound     = errors.New("tenant does not exist")
	ErrTenantNameRequired = errors.New("tenant name is required")
	ErrInviteRequired     = errors.New("invite token is required to join an existing tenant")
	ErrInvalidUserType    = errors.New("invalid user type")
	ErrPasswordTooWeak    = errors.New("password does not meet requirements")
	ErrMFANotEnabled      = errors.New("MFA is not enabled for this account")
	ErrMFACodeInvalid     = errors.New("invalid MFA code")
)

// AuthService orchestrates signup, login, logout, and session validation
// over the credential store, session manager, and login audit log.
type AuthService struct {
	db           *database.Postgres
	userRepo     *repository.UserRepository
	tenantRepo   *repository.TenantRepository
	sessionSvc   *SessionService
	loginLogSvc  *LoginLogService
	tokenSvc     *auth.TokenService
	argon2Params *auth.Argon2Params
	cfg          *config.Config
	log          *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	db *database.Postgres,
	userRepo *repository.UserRepository,
	tenantRepo *repository.TenantRepository,
	sessionSvc *SessionService,
	loginLogSvc *LoginLogService,
	tokenSvc *auth.TokenService,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		db:          db,
		userRepo:    userRepo,
		tenantRepo:  tenantRepo,
		sessionSvc:  sessionSvc,
		loginLogSvc: loginLogSvc,
		tokenSvc:    tokenSvc,
		argon2Params: auth.NewParams(
			cfg.Security.Password.Argon2Memory,
			cfg.Security.Password.Argon2Iterations,
			cfg.Security.Password.Argon2Parallelism,
		),
		cfg: cfg,
		log: log.WithComponent("auth_service"),
	}
}

// SignupRequest contains the data for registering a new user
type SignupRequest struct {
	UserType model.UserType
	Email    string
	Username string
	Password string
	FullName string

	// Tenant-scoped signups
	TenantName      string
	CreateNewTenant bool
	InviteToken     string

	Timezone string
	Locale   string
}

// SignupResponse contains the response from a signup
type SignupResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Signup creates a MASTER user, or a TENANT user together with its tenant
// and membership link. The whole flow runs in one transaction; any failure
// rolls everything back.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	if req.UserType != model.UserTypeMaster && req.UserType != model.UserTypeTenant {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserType, req.UserType)
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := auth.ValidateUsername(req.Username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userRepo := s.userRepo.WithTx(tx)
	tenantRepo := s.tenantRepo.WithTx(tx)

	// Uniqueness checks are case-sensitive exact matches
	if exists, err := userRepo.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if exists {
		return nil, ErrEmailExists
	}
	if exists, err := userRepo.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if exists {
		return nil, ErrUsernameExists
	}

	var tenant *model.Tenant
	if req.UserType == model.UserTypeTenant {
		tenant, err = s.resolveTenant(ctx, tenantRepo, req)
		if err != nil {
			return nil, err
		}
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	passwordHash, err := auth.HashPassword(req.Password+salt, s.argon2Params)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		UserType:     req.UserType,
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: passwordHash,
		SaltKey:      salt,
		Status:       model.UserStatusActive,
		Timezone:     defaultString(req.Timezone, "UTC"),
		Locale:       defaultString(req.Locale, "en-US"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := userRepo.Create(ctx, user); err != nil {
		if conflict := signupConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if tenant != nil {
		link := &model.TenantUser{
			ID:        generateID("tus"),
			TenantID:  tenant.ID,
			UserID:    user.ID,
			Status:    "ACTIVE",
			IsPrimary: true,
			IsAdmin:   req.CreateNewTenant,
			StartDate: now,
			CreatedAt: now,
		}
		if err := tenantRepo.LinkUser(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to link tenant user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if conflict := signupConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("failed to commit signup: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("user_type", string(user.UserType)).
		Msg("user signed up")

	return &SignupResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
	}, nil
}

// resolveTenant creates a new tenant or resolves an existing one by invite
func (s *AuthService) resolveTenant(ctx context.Context, tenantRepo *repository.TenantRepository, req SignupRequest) (*model.Tenant, error) {
	if req.CreateNewTenant {
		if req.TenantName == "" {
			return nil, ErrTenantNameRequired
		}
		if exists, err := tenantRepo.ExistsByName(ctx, req.TenantName); err != nil {
			return nil, fmt.Errorf("failed to check tenant name: %w", err)
		} else if exists {
			return nil, ErrTenantNameExists
		}

		now := time.Now()
		tenant := &model.Tenant{
			ID:         generateID("tnt"),
			TenantCode: generateTenantCode(),
			TenantName: req.TenantName,
			TenantType: model.TenantTypeStandard,
			Status:     model.TenantStatusActive,
			StartDate:  now,
			Timezone:   defaultString(req.Timezone, "UTC"),
			Locale:     defaultString(req.Locale, "en-US"),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tenantRepo.Create(ctx, tenant); err != nil {
			if conflict := signupConflict(err); conflict != nil {
				return nil, conflict
			}
			return nil, fmt.Errorf("failed to create tenant: %w", err)
		}
		s.log.Info().Str("tenant_id", tenant.ID).Str("tenant_code", tenant.TenantCode).Msg("tenant created")
		return tenant, nil
	}

	// Joining an existing tenant requires an invite token
	if req.InviteToken == "" {
		return nil, ErrInviteRequired
	}
	// TODO: verify the invite token against stored invitations
	tenant, err := tenantRepo.GetByName(ctx, req.TenantName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to look up tenant: %w", err)
	}
	return tenant, nil
}

// LoginRequest contains the data for logging in
type LoginRequest struct {
	UsernameOrEmail string
	Password        string
	Client          ClientContext
}

// LoginResponse contains the credentials issued on a successful login
type LoginResponse struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Login authenticates a user and issues a session plus access token.
//
// The account behaves as a two-state machine (ACTIVE, LOCKED): a lock with
// locked_until in the future rejects outright; a lapsed lock self-heals to
// ACTIVE before the password check; crossing the failure threshold applies
// the lock. Concurrent attempts may race on the counter; lockout is
// best-effort, not exactly-at-N.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.loginLogSvc.LogFailure(ctx, nil, req.UsernameOrEmail, model.FailureReasonInvalidUsername, req.Client)
			// Same generic error as a bad password; no user enumeration
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsLocked() {
		s.loginLogSvc.LogFailure(ctx, &user.ID, user.Username, model.FailureReasonAccountLocked, req.Client)
		return nil, ErrAccountLocked
	}

	if user.LockExpired() {
		// Lock has lapsed; self-heal before checking the password
		if err := s.userRepo.Unlock(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to unlock account: %w", err)
		}
		user.Status = model.UserStatusActive
		user.LockedUntil = nil
		user.FailedLoginAttempts = 0
		s.log.Info().Str("user_id", user.ID).Msg("account lock expired, self-healed to active")
	}

	match, err := auth.VerifyPassword(req.Password+user.SaltKey, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		attempts, err := s.userRepo.IncrementFailedAttempts(ctx, user.ID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to increment failed attempts")
			attempts = user.FailedLoginAttempts + 1
		}

		s.loginLogSvc.LogFailure(ctx, &user.ID, user.Username, model.FailureReasonInvalidPassword, req.Client)

		if attempts >= s.cfg.Security.Lockout.MaxFailedAttempts {
			until := time.Now().Add(s.cfg.Security.Lockout.Duration)
			if err := s.userRepo.LockUntil(ctx, user.ID, until); err != nil {
				s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to lock account")
			} else {
				s.log.Warn().
					Str("user_id", user.ID).
					Int("attempts", attempts).
					Time("locked_until", until).
					Msg("account locked after repeated failures")
				s.loginLogSvc.LogLocked(ctx, user.ID, user.Username, req.Client)
			}
		}
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.userRepo.RecordLogin(ctx, user.ID, now, cleanIP(req.Client.IPAddress)); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record login")
	}

	sessionToken, session, err := s.sessionSvc.CreateSession(ctx, user.ID, req.Client, s.cfg.Security.Session.TTL)
	if err != nil {
		// A failed login attempt leaves no partial session
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, _, err := s.tokenSvc.GenerateAccessToken(user.ID, user.Username, session.TokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.loginLogSvc.LogSuccess(ctx, user.ID, user.Username, session.ID, req.Client)
	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")

	return &LoginResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		SessionToken: sessionToken,
		UserID:       user.ID,
		Email:        user.Email,
		Username:     user.Username,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Logout revokes the presented session. Returns ErrSessionInvalid when the
// token does not resolve to an active session; no audit entry is written in
// that case (there is nothing to revoke).
func (s *AuthService) Logout(ctx context.Context, sessionToken string, client ClientContext) error {
	session, err := s.sessionSvc.ValidateSession(ctx, sessionToken, false)
	if err != nil {
		return err
	}

	revoked, err := s.sessionSvc.RevokeSession(ctx, sessionToken)
	if err != nil {
		return err
	}
	if !revoked {
		return ErrSessionInvalid
	}

	username := ""
	if user, err := s.userRepo.GetByID(ctx, session.UserID); err == nil {
		username = user.Username
	}
	s.loginLogSvc.LogLogout(ctx, session.UserID, username, session.ID, client)

	return nil
}

// ChangePassword rotates the caller's credential after re-checking the
// current password. Every other session of the user is revoked so a stolen
// token does not outlive the rotation.
func (s *AuthService) ChangePassword(ctx context.Context, sessionToken, currentPassword, newPassword string, client ClientContext) error {
	session, err := s.sessionSvc.ValidateSession(ctx, sessionToken, false)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := auth.VerifyPassword(currentPassword+user.SaltKey, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return ErrInvalidCredentials
	}

	if err := auth.ValidatePassword(newPassword, s.cfg.Security.Password.MinLength); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordTooWeak, err.Error())
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := auth.HashPassword(newPassword+salt, s.argon2Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, hash, salt); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// A stale failure counter should not outlive a credential change
	if err := s.userRepo.ResetFailedAttempts(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to reset failed attempts")
	}

	if _, err := s.sessionSvc.RevokeUserSessions(ctx, user.ID, sessionToken); err != nil {
		return fmt.Errorf("failed to revoke other sessions: %w", err)
	}

	s.loginLogSvc.LogPasswordReset(ctx, user.ID, user.Username, client)
	s.log.WithUserID(user.ID).Info().Msg("password changed")

	return nil
}

// ValidateSessionToken is the guard used by protected endpoints. It applies
// lazy expiry and refreshes session activity.
func (s *AuthService) ValidateSessionToken(ctx context.Context, sessionToken string) (*model.Session, error) {
	return s.sessionSvc.ValidateSession(ctx, sessionToken, true)
}

// VerifySessionMFA checks a TOTP code against the session owner's secret
// and marks the session MFA-verified
func (s *AuthService) VerifySessionMFA(ctx context.Context, sessionToken, code string) error {
	session, err := s.sessionSvc.ValidateSession(ctx, sessionToken, false)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.MFAEnabled || user.MFASecret == nil {
		return ErrMFANotEnabled
	}

	if !totp.Validate(code, *user.MFASecret) {
		return ErrMFACodeInvalid
	}

	if err := s.sessionSvc.sessionRepo.MarkMFAVerified(ctx, session.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark session MFA verified: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("session MFA verified")
	return nil
}

// Helper functions

// signupConflict maps a unique-index violation raised at insert or commit
// time to the matching conflict sentinel. The pre-insert exists checks race
// with concurrent signups; the index is the authority. Returns nil when the
// error is not a known conflict.
func signupConflict(err error) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	switch repository.ConstraintName(err) {
	case "idx_users_email":
		return ErrEmailExists
	case "idx_users_username":
		return ErrUsernameExists
	case "tenants_tenant_name_key":
		return ErrTenantNameExists
	}
	return nil
}

func generateID(prefix string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix != "" {
		return prefix + "_" + id[:26]
	}
	return id
}

// generateTenantCode returns a short human-shareable tenant identifier
func generateTenantCode() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "T" + strings.ToUpper(id[:8])
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func cleanIP(ip string) string {
	// Strip port if present
	host, _, err := net.SplitHostPort(ip)
	if err != nil {
		return ip
	}
	return host
}

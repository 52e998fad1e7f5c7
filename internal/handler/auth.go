package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tenantry/tenantry/internal/middleware"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/service"
)

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// getClientIP extracts the originating client IP. X-Forwarded-For can
// carry the whole proxy chain; only the first hop is the client.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func clientContext(r *http.Request) service.ClientContext {
	return service.ClientContext{
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Signup Handler ---

type signupRequest struct {
	UserType        string `json:"userType"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	FullName        string `json:"fullName"`
	TenantName      string `json:"tenantName,omitempty"`
	CreateNewTenant bool   `json:"createNewTenant,omitempty"`
	InviteToken     string `json:"inviteToken,omitempty"`
	Timezone        string `json:"timezone,omitempty"`
	Locale          string `json:"locale,omitempty"`
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Email, username and password are required")
		return
	}
	if req.UserType == "" {
		req.UserType = string(model.UserTypeTenant)
	}

	resp, err := h.authSvc.Signup(r.Context(), service.SignupRequest{
		UserType:        model.UserType(req.UserType),
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		FullName:        req.FullName,
		TenantName:      req.TenantName,
		CreateNewTenant: req.CreateNewTenant,
		InviteToken:     req.InviteToken,
		Timezone:        req.Timezone,
		Locale:          req.Locale,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			writeError(w, http.StatusConflict, "email_exists", "An account with this email already exists")
		case errors.Is(err, service.ErrUsernameExists):
			writeError(w, http.StatusConflict, "username_exists", "This username is already in use")
		case errors.Is(err, service.ErrTenantNameExists):
			writeError(w, http.StatusConflict, "tenant_exists", "A tenant with this name already exists")
		case errors.Is(err, service.ErrTenantNotFound):
			writeError(w, http.StatusNotFound, "tenant_not_found", "The tenant does not exist")
		case errors.Is(err, service.ErrTenantNameRequired),
			errors.Is(err, service.ErrInviteRequired),
			errors.Is(err, service.ErrInvalidUserType),
			errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("signup failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Signup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// --- Login Handler ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Username and password are required")
		return
	}

	resp, err := h.authSvc.Login(r.Context(), service.LoginRequest{
		UsernameOrEmail: req.Username,
		Password:        req.Password,
		Client:          clientContext(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "The username or password is incorrect.")
		case errors.Is(err, service.ErrAccountLocked):
			writeError(w, http.StatusLocked, "account_locked", "Your account has been temporarily locked due to too many failed login attempts.")
		default:
			h.log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Logout Handler ---

// Logout revokes the current session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(middleware.SessionTokenKey).(string)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.authSvc.Logout(r.Context(), token, clientContext(r)); err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			writeError(w, http.StatusUnauthorized, "session_invalid", "The session is invalid or expired")
			return
		}
		h.log.Error().Err(err).Msg("logout failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// --- Password Change Handler ---

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword rotates the authenticated user's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(middleware.SessionTokenKey).(string)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Current and new passwords are required")
		return
	}

	if err := h.authSvc.ChangePassword(r.Context(), token, req.CurrentPassword, req.NewPassword, clientContext(r)); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionInvalid):
			writeError(w, http.StatusUnauthorized, "session_invalid", "The session is invalid or expired")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "The current password is incorrect.")
		case errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			h.log.Error().Err(err).Msg("password change failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Password change failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// --- MFA Handler ---

type mfaVerifyRequest struct {
	Code string `json:"code"`
}

// VerifyMFA verifies a TOTP code for the current session
func (h *Handler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(middleware.SessionTokenKey).(string)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req mfaVerifyRequest
	if err := readJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "MFA code is required")
		return
	}

	if err := h.authSvc.VerifySessionMFA(r.Context(), token, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionInvalid):
			writeError(w, http.StatusUnauthorized, "session_invalid", "The session is invalid or expired")
		case errors.Is(err, service.ErrMFANotEnabled):
			writeError(w, http.StatusBadRequest, "mfa_not_enabled", "MFA is not enabled for this account")
		case errors.Is(err, service.ErrMFACodeInvalid):
			writeError(w, http.StatusUnauthorized, "mfa_code_invalid", "The MFA code is invalid")
		default:
			h.log.Error().Err(err).Msg("MFA verification failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "MFA verification failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "MFA verified"})
}

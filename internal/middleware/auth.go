package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tenantry/tenantry/internal/service"
)

// Context keys for authenticated session data
const (
	UserIDKey       contextKey = "user_id"
	SessionIDKey    contextKey = "session_id"
	SessionTokenKey contextKey = "session_token"
	MFAVerifiedKey  contextKey = "mfa_verified"
)

// SessionAuth guards protected routes by resolving the bearer session token
// to an active session. Expired sessions are transitioned and rejected as
// part of validation.
func (m *Middleware) SessionAuth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					token = parts[1]
				}
			}

			if token == "" {
				http.Error(w, `{"error":{"code":"unauthorized","message":"Authentication required"}}`, http.StatusUnauthorized)
				return
			}

			session, err := authSvc.ValidateSessionToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrSessionInvalid) {
					http.Error(w, `{"error":{"code":"session_invalid","message":"The session is invalid or expired"}}`, http.StatusUnauthorized)
					return
				}
				m.log.Error().Err(err).Msg("session validation failed")
				http.Error(w, `{"error":{"code":"internal_error","message":"An unexpected error occurred"}}`, http.StatusInternalServerError)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, session.UserID)
			ctx = context.WithValue(ctx, SessionIDKey, session.ID)
			ctx = context.WithValue(ctx, SessionTokenKey, token)
			ctx = context.WithValue(ctx, MFAVerifiedKey, session.MFAVerified)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

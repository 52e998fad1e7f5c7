package router

import (
	"net/http"
	"time"

	"github.com/tenantry/tenantry/internal/handler"
	"github.com/tenantry/tenantry/internal/logger"
	"github.com/tenantry/tenantry/internal/middleware"
	"github.com/tenantry/tenantry/internal/service"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, log *logger.Logger, authSvc *service.AuthService) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Tenantry API v1","version":"0.1.0"}`))
	})

	// Public authentication routes (rate limited)
	loginRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  10,
		Window: 15 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	signupRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  3,
		Window: 1 * time.Hour,
		KeyFn:  middleware.IPKey,
	})

	mux.Handle("POST /api/v1/auth/signup", signupRateLimit(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/v1/auth/login", loginRateLimit(http.HandlerFunc(h.Login)))

	// Protected routes (require a valid session)
	authMw := mw.SessionAuth(authSvc)

	mux.Handle("POST /api/v1/auth/logout", authMw(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/auth/password", authMw(http.HandlerFunc(h.ChangePassword)))

	mfaRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Limit:  5,
		Window: 5 * time.Minute,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/v1/auth/mfa/verify", authMw(mfaRateLimit(http.HandlerFunc(h.VerifyMFA))))

	// Session management routes (authenticated)
	mux.Handle("GET /api/v1/sessions", authMw(http.HandlerFunc(h.ListSessions)))
	mux.Handle("GET /api/v1/sessions/stats", authMw(http.HandlerFunc(h.GetSessionStats)))
	mux.Handle("GET /api/v1/sessions/me", authMw(http.HandlerFunc(h.GetMySessions)))
	mux.Handle("POST /api/v1/sessions/revoke-others", authMw(http.HandlerFunc(h.RevokeOtherSessions)))
	mux.Handle("POST /api/v1/sessions/extend", authMw(http.HandlerFunc(h.ExtendSession)))

	// Login audit routes (authenticated)
	mux.Handle("GET /api/v1/login-logs", authMw(http.HandlerFunc(h.ListLoginLogs)))

	// Apply middleware stack
	var handlerChain http.Handler = mux

	// Request logging
	handlerChain = mw.Logger(handlerChain)

	// Request ID
	handlerChain = mw.RequestID(handlerChain)

	// Panic recovery (outermost)
	handlerChain = mw.Recover(handlerChain)

	return handlerChain
}

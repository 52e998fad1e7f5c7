package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tenantry/tenantry/internal/middleware"
	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

// --- Session Handlers ---

func parsePagination(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// ListSessions returns sessions matching the query filters, paginated
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size := parsePagination(r)

	filter := repository.SessionFilter{
		UserID:    q.Get("userId"),
		Username:  q.Get("username"),
		Status:    model.SessionStatus(q.Get("status")),
		IPAddress: q.Get("ipAddress"),
		StartDate: parseDate(q.Get("startDate")),
		EndDate:   parseDate(q.Get("endDate")),
		Page:      page,
		Size:      size,
	}

	sessions, total, err := h.sessionSvc.ListSessions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    total,
		"page":     page,
		"size":     size,
	})
}

// GetSessionStats returns aggregate session counters
func (h *Handler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessionSvc.GetStats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get session stats")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get session stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetMySessions returns the authenticated user's active sessions
func (h *Handler) GetMySessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	sessions, err := h.sessionSvc.GetUserActiveSessions(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get user sessions")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// RevokeOtherSessions revokes every session of the user except the current one
func (h *Handler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	token, _ := r.Context().Value(middleware.SessionTokenKey).(string)

	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	count, err := h.sessionSvc.RevokeUserSessions(r.Context(), userID, token)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to revoke other sessions")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to revoke sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Other sessions revoked",
		"revokedCount": count,
	})
}

// ExtendSession pushes the current session's expiry forward by the
// configured TTL from now
func (h *Handler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(middleware.SessionTokenKey).(string)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	extended, err := h.sessionSvc.ExtendSession(r.Context(), token, h.cfg.Security.Session.TTL)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to extend session")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to extend session")
		return
	}
	if !extended {
		writeError(w, http.StatusUnauthorized, "session_invalid", "The session is invalid or expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Session extended",
		"expiresAt": time.Now().Add(h.cfg.Security.Session.TTL),
	})
}

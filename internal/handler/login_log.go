package handler

import (
	"net/http"

	"github.com/tenantry/tenantry/internal/model"
	"github.com/tenantry/tenantry/internal/repository"
)

// ListLoginLogs returns login audit entries matching the query filters
func (h *Handler) ListLoginLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size := parsePagination(r)

	filter := repository.LoginLogFilter{
		UserID:      q.Get("userId"),
		Username:    q.Get("username"),
		AttemptType: model.LoginAttemptType(q.Get("attemptType")),
		StartDate:   parseDate(q.Get("startDate")),
		EndDate:     parseDate(q.Get("endDate")),
		Page:        page,
		Size:        size,
	}
	if s := q.Get("success"); s == "true" || s == "false" {
		v := s == "true"
		filter.Success = &v
	}

	logs, total, err := h.loginLogSvc.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list login logs")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list login logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/services"
)

type AuditHandler struct {
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns the caller's own audit trail, newest first.
func (h *AuditHandler) List(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit, offset := pagination(c)
	filters := &models.AuditLogFilters{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if v := c.QueryParam("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartDate = &t
		}
	}
	if v := c.QueryParam("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndDate = &t
		}
	}

	logs, err := h.audit.List(c.Request().Context(), filters)
	if err != nil {
		return respondError(c, err)
	}
	if logs == nil {
		logs = []*models.AgentAuditLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"auditLogs": logs})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/services"
)

// respondError maps service errors onto the shared error envelope. Expired
// resources report 410 so callers can distinguish them from 404.
func respondError(c echo.Context, err error) error {
	if bre, ok := common.AsBusinessRuleError(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    "BUSINESS_RULE_VIOLATION",
				"message": "The request was refused by business rules",
				"reasons": bre.Reasons,
			},
		})
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		return c.JSON(http.StatusNotFound, common.CreateErrorResponse("NOT_FOUND", "Resource not found", nil))
	case errors.Is(err, common.ErrExpired):
		return c.JSON(http.StatusGone, common.CreateErrorResponse("EXPIRED", "Resource has expired", nil))
	case errors.Is(err, common.ErrInvalidState):
		return c.JSON(http.StatusConflict, common.CreateErrorResponse("INVALID_STATE", err.Error(), nil))
	case errors.Is(err, common.ErrInvalidConsent):
		return c.JSON(http.StatusForbidden, common.CreateErrorResponse("INVALID_CONSENT", "Consent token is missing, invalid, or bound to another preview", nil))
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, services.ErrInvalidToken):
		return common.SendUnauthorizedError(c)
	case errors.Is(err, services.ErrPINLocked):
		return c.JSON(http.StatusLocked, common.CreateErrorResponse("PIN_LOCKED", "PIN locked after too many failed attempts. Try again later.", nil))
	case errors.Is(err, services.ErrPINMismatch), errors.Is(err, services.ErrVoiceNoMatch):
		return c.JSON(http.StatusForbidden, common.CreateErrorResponse("CONSENT_VERIFICATION_FAILED", "Consent verification failed", nil))
	default:
		c.Logger().Errorf("unhandled service error: %v", err)
		return common.SendServerError(c, "Internal server error")
	}
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"
	"voxbank/internal/services"
)

// ConsentHandler exposes the human-factor verifiers. Set/enroll live on the
// interactive session; verify runs on agent routes because the agent relays
// the spoken PIN or voice sample, and a successful verification yields the
// consent token the pipeline demands.
type ConsentHandler struct {
	consents services.ConsentService
	billers  repositories.BillerRepository
}

func NewConsentHandler(consents services.ConsentService, billers repositories.BillerRepository) *ConsentHandler {
	return &ConsentHandler{consents: consents, billers: billers}
}

type setPINRequest struct {
	PIN string `json:"pin"`
}

func (h *ConsentHandler) SetPIN(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req setPINRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := h.consents.SetPIN(c.Request().Context(), userID, req.PIN); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type verifyPINRequest struct {
	PreviewID string `json:"previewId"`
	PIN       string `json:"pin"`
}

// VerifyPIN checks the PIN and mints a consent token bound to the preview.
func (h *ConsentHandler) VerifyPIN(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req verifyPINRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	previewID, err := common.ValidateUUID(req.PreviewID, "previewId")
	if err != nil {
		return common.SendValidationError(c, "previewId", err.Error())
	}
	if err := common.ValidateRequiredString(req.PIN, "pin"); err != nil {
		return common.SendValidationError(c, "pin", err.Error())
	}

	token, err := h.consents.VerifyPIN(c.Request().Context(), userID, previewID, req.PIN)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"consentToken": token})
}

type voiceRequest struct {
	PreviewID string    `json:"previewId"`
	Embedding []float64 `json:"embedding"`
}

func (h *ConsentHandler) EnrollVoice(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req voiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := h.consents.EnrollVoice(c.Request().Context(), userID, req.Embedding); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *ConsentHandler) VerifyVoice(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req voiceRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	previewID, err := common.ValidateUUID(req.PreviewID, "previewId")
	if err != nil {
		return common.SendValidationError(c, "previewId", err.Error())
	}

	token, err := h.consents.VerifyVoice(c.Request().Context(), userID, previewID, req.Embedding)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"consentToken": token})
}

type createBillerRequest struct {
	BillType       string `json:"billType"`
	Name           string `json:"name"`
	ConsumerNumber string `json:"consumerNumber"`
}

// CreateBiller registers a biller on the interactive session so the agent
// can later pay it by bill type and consumer number.
func (h *ConsentHandler) CreateBiller(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req createBillerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := common.ValidateRequiredString(req.BillType, "billType"); err != nil {
		return common.SendValidationError(c, "billType", err.Error())
	}
	if err := common.ValidateRequiredString(req.ConsumerNumber, "consumerNumber"); err != nil {
		return common.SendValidationError(c, "consumerNumber", err.Error())
	}

	biller := &models.Biller{
		UserID:         userID,
		BillType:       req.BillType,
		Name:           req.Name,
		ConsumerNumber: req.ConsumerNumber,
		IsActive:       true,
	}
	if err := h.billers.Create(c.Request().Context(), biller); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, biller)
}

func (h *ConsentHandler) ListBillers(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	billers, err := h.billers.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if billers == nil {
		billers = []*models.Biller{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"billers": billers})
}

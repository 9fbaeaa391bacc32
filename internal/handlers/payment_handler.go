package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/services"
)

type PaymentHandler struct {
	payments services.PaymentService
	fraud    services.FraudService
}

func NewPaymentHandler(payments services.PaymentService, fraud services.FraudService) *PaymentHandler {
	return &PaymentHandler{payments: payments, fraud: fraud}
}

type previewPaymentRequest struct {
	FromAccountID string  `json:"fromAccountId"`
	BeneficiaryID string  `json:"beneficiaryId"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
}

// Preview runs the fraud heuristics and, when they pass, creates a PENDING
// payment preview with computed charges and rules.
func (h *PaymentHandler) Preview(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req previewPaymentRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	accountID, err := common.ValidateUUID(req.FromAccountID, "fromAccountId")
	if err != nil {
		return common.SendValidationError(c, "fromAccountId", err.Error())
	}
	beneficiaryID, err := common.ValidateUUID(req.BeneficiaryID, "beneficiaryId")
	if err != nil {
		return common.SendValidationError(c, "beneficiaryId", err.Error())
	}

	fraud, err := h.fraud.Evaluate(c.Request().Context(), userID, models.ActionMakePayment,
		models.JSONB{"amount": req.Amount})
	if err != nil {
		return respondError(c, err)
	}
	if fraud.IsFraudulent {
		return respondError(c, common.NewBusinessRuleError(fraud.Reasons...))
	}

	preview, err := h.payments.Preview(c.Request().Context(), userID, services.PaymentPreviewRequest{
		FromAccountID: accountID,
		BeneficiaryID: beneficiaryID,
		Amount:        req.Amount,
		Method:        req.Method,
		TraceID:       traceID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, preview)
}

type confirmRequest struct {
	PreviewID    string `json:"previewId"`
	ConsentToken string `json:"consentToken"`
}

func (h *PaymentHandler) Confirm(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	previewID, err := common.ValidateUUID(req.PreviewID, "previewId")
	if err != nil {
		return common.SendValidationError(c, "previewId", err.Error())
	}
	if err := common.ValidateRequiredString(req.ConsentToken, "consentToken"); err != nil {
		return common.SendValidationError(c, "consentToken", err.Error())
	}

	preview, err := h.payments.Confirm(c.Request().Context(), userID, previewID, req.ConsentToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"preview": preview,
	})
}

type executeRequest struct {
	PreviewID       string `json:"previewId"`
	ConsentToken    string `json:"consentToken"`
	BankReferenceID string `json:"bankReferenceId"`
	Status          string `json:"status"`
}

// Execute performs the debit. Replays of an executed preview return the
// original result with 200 rather than an error.
func (h *PaymentHandler) Execute(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	previewID, err := common.ValidateUUID(req.PreviewID, "previewId")
	if err != nil {
		return common.SendValidationError(c, "previewId", err.Error())
	}
	if err := common.ValidateRequiredString(req.ConsentToken, "consentToken"); err != nil {
		return common.SendValidationError(c, "consentToken", err.Error())
	}

	result, err := h.payments.Execute(c.Request().Context(), userID, previewID, req.ConsentToken, req.BankReferenceID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

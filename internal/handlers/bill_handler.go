package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"
	"voxbank/internal/services"
)

type BillHandler struct {
	bills  services.BillService
	fraud  services.FraudService
	ledger repositories.LedgerRepository
}

func NewBillHandler(bills services.BillService, fraud services.FraudService, ledger repositories.LedgerRepository) *BillHandler {
	return &BillHandler{bills: bills, fraud: fraud, ledger: ledger}
}

type previewBillRequest struct {
	FromAccountID  string  `json:"fromAccountId"`
	BillType       string  `json:"billType"`
	ConsumerNumber string  `json:"consumerNumber"`
	Amount         float64 `json:"amount"`
}

func (h *BillHandler) Preview(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req previewBillRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	accountID, err := common.ValidateUUID(req.FromAccountID, "fromAccountId")
	if err != nil {
		return common.SendValidationError(c, "fromAccountId", err.Error())
	}
	if err := common.ValidateRequiredString(req.BillType, "billType"); err != nil {
		return common.SendValidationError(c, "billType", err.Error())
	}
	if err := common.ValidateRequiredString(req.ConsumerNumber, "consumerNumber"); err != nil {
		return common.SendValidationError(c, "consumerNumber", err.Error())
	}

	fraud, err := h.fraud.Evaluate(c.Request().Context(), userID, models.ActionPayBill,
		models.JSONB{"amount": req.Amount})
	if err != nil {
		return respondError(c, err)
	}
	if fraud.IsFraudulent {
		return respondError(c, common.NewBusinessRuleError(fraud.Reasons...))
	}

	preview, err := h.bills.Preview(c.Request().Context(), userID, services.BillPreviewRequest{
		FromAccountID:  accountID,
		BillType:       req.BillType,
		ConsumerNumber: req.ConsumerNumber,
		Amount:         req.Amount,
		TraceID:        traceID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, preview)
}

func (h *BillHandler) Confirm(c echo.Context) error {
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

	preview, err := h.bills.Confirm(c.Request().Context(), userID, previewID, req.ConsentToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"preview": preview,
	})
}

func (h *BillHandler) Execute(c echo.Context) error {
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

	result, err := h.bills.Execute(c.Request().Context(), userID, previewID, req.ConsentToken, req.BankReferenceID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

// History lists executed bill payments for the authenticated user.
func (h *BillHandler) History(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	limit, offset := pagination(c)
	payments, err := h.ledger.ListBillPayments(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	if payments == nil {
		payments = []*models.BillPayment{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"billPayments": payments})
}

func pagination(c echo.Context) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

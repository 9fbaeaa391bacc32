package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"
	"voxbank/internal/services"
)

type AccountHandler struct {
	accounts      repositories.AccountRepository
	beneficiaries repositories.BeneficiaryRepository
	ledger        repositories.LedgerRepository
	audit         services.AuditService
}

func NewAccountHandler(accounts repositories.AccountRepository, beneficiaries repositories.BeneficiaryRepository, ledger repositories.LedgerRepository, audit services.AuditService) *AccountHandler {
	return &AccountHandler{accounts: accounts, beneficiaries: beneficiaries, ledger: ledger, audit: audit}
}

// ListAccounts returns the user's accounts with balances.
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	accounts, err := h.accounts.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	h.audit.Record(c.Request().Context(), userID, models.ActionCheckBalance, "",
		models.JSONB{"accounts": len(accounts)}, nil, traceID(c))
	return c.JSON(http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// GetBalance returns one owned account. The account id is an explicit path
// parameter; there is no implicit primary-account fallback.
func (h *AccountHandler) GetBalance(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	accountID, err := common.ValidateUUID(c.Param("accountId"), "accountId")
	if err != nil {
		return common.SendValidationError(c, "accountId", err.Error())
	}
	account, err := h.accounts.GetOwned(c.Request().Context(), userID, accountID)
	if err != nil {
		return respondError(c, err)
	}
	h.audit.Record(c.Request().Context(), userID, models.ActionCheckBalance, "",
		models.JSONB{"accountId": account.ID.String()}, nil, traceID(c))
	return c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) ListTransactions(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	limit, offset := pagination(c)
	txns, err := h.ledger.ListTransactions(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	h.audit.Record(c.Request().Context(), userID, models.ActionListTxns, "",
		models.JSONB{"count": len(txns)}, nil, traceID(c))
	return c.JSON(http.StatusOK, map[string]interface{}{"transactions": txns})
}

func (h *AccountHandler) ListBeneficiaries(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	beneficiaries, err := h.beneficiaries.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if beneficiaries == nil {
		beneficiaries = []*models.Beneficiary{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"beneficiaries": beneficiaries})
}

type createBeneficiaryRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	Nickname      string `json:"nickname"`
}

// CreateBeneficiary registers a payee on the interactive session. Agents
// cannot add beneficiaries; payments go only to pre-registered payees.
func (h *AccountHandler) CreateBeneficiary(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req createBeneficiaryRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return common.SendValidationError(c, "name", err.Error())
	}
	if err := common.ValidateRequiredString(req.AccountNumber, "accountNumber"); err != nil {
		return common.SendValidationError(c, "accountNumber", err.Error())
	}

	beneficiary := &models.Beneficiary{
		UserID:        userID,
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		IFSCCode:      req.IFSCCode,
		IsActive:      true,
	}
	if req.Nickname != "" {
		beneficiary.Nickname = &req.Nickname
	}
	if err := h.beneficiaries.Create(c.Request().Context(), beneficiary); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, beneficiary)
}

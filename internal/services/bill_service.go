package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"
)

type BillPreviewRequest struct {
	FromAccountID  uuid.UUID `json:"fromAccountId"`
	BillType       string    `json:"billType"`
	ConsumerNumber string    `json:"consumerNumber"`
	Amount         float64   `json:"amount"`
	TraceID        string    `json:"traceId"`
}

type BillService interface {
	Preview(ctx context.Context, userID uuid.UUID, req BillPreviewRequest) (*models.BillPreview, error)
	Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) (*models.BillPreview, error)
	Execute(ctx context.Context, userID, previewID uuid.UUID, consentToken, bankReferenceID, status string) (*ExecuteResult, error)
}

type billService struct {
	previews repositories.BillPreviewRepository
	accounts repositories.AccountRepository
	billers  repositories.BillerRepository
	ledger   repositories.LedgerRepository
	codec    TokenCodec
	audit    AuditService
}

func NewBillService(previews repositories.BillPreviewRepository, accounts repositories.AccountRepository, billers repositories.BillerRepository, ledger repositories.LedgerRepository, codec TokenCodec, audit AuditService) BillService {
	return &billService{
		previews: previews,
		accounts: accounts,
		billers:  billers,
		ledger:   ledger,
		codec:    codec,
		audit:    audit,
	}
}

// Preview resolves the biller from the user's registry and stores a PENDING
// bill preview. Bill payments carry no charges regardless of method.
func (s *billService) Preview(ctx context.Context, userID uuid.UUID, req BillPreviewRequest) (*models.BillPreview, error) {
	if req.Amount <= 0 {
		return nil, common.NewBusinessRuleError("Bill amount must be greater than zero")
	}
	billType := strings.ToUpper(req.BillType)
	if billType == "" {
		return nil, fmt.Errorf("%w: bill type is required", common.ErrInvalidState)
	}

	account, err := s.accounts.GetOwned(ctx, userID, req.FromAccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Status != models.AccountStatusActive {
		return nil, fmt.Errorf("%w: account is %s", common.ErrInvalidState, account.Status)
	}
	biller, err := s.billers.GetActive(ctx, userID, billType, req.ConsumerNumber)
	if err != nil {
		return nil, fmt.Errorf("load biller: %w", err)
	}

	rules := evaluateRules(account.Balance, req.Amount, req.Amount)

	preview := &models.BillPreview{
		ID:               uuid.New(),
		UserID:           userID,
		FromAccountID:    account.ID,
		BillType:         billType,
		BillerName:       biller.Name,
		ConsumerNumber:   biller.ConsumerNumber,
		RequestedAmount:  req.Amount,
		Charges:          0,
		FinalDebitAmount: Round2(req.Amount),
		RulesResult:      rules,
		Status:           models.PreviewStatusPending,
		ExpiresAt:        time.Now().Add(PreviewTTL),
	}
	if err := s.previews.Create(ctx, preview); err != nil {
		return nil, fmt.Errorf("store preview: %w", err)
	}

	traceID := s.audit.Record(ctx, userID, models.ActionPayBill, "",
		models.JSONB{"previewId": preview.ID.String(), "allowed": rules.Allowed},
		models.JSONB{
			"amount":         req.Amount,
			"billType":       billType,
			"billerName":     biller.Name,
			"consumerNumber": biller.ConsumerNumber,
		}, req.TraceID)
	s.audit.AttachPreview(ctx, userID, traceID, preview.ID)
	return preview, nil
}

func (s *billService) Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) (*models.BillPreview, error) {
	preview, err := s.previews.GetOwned(ctx, userID, previewID)
	if err != nil {
		return nil, err
	}
	if err := checkActionable(preview.Status, preview.ExpiresAt, models.PreviewStatusPending); err != nil {
		return nil, err
	}
	if !preview.RulesResult.Allowed {
		return nil, common.NewBusinessRuleError(preview.RulesResult.Reasons...)
	}
	if err := s.verifyConsent(consentToken, userID, previewID); err != nil {
		return nil, err
	}
	if err := s.previews.Confirm(ctx, userID, previewID, consentToken); err != nil {
		return nil, err
	}
	preview.Status = models.PreviewStatusConfirmed
	preview.ConsentToken = &consentToken

	traceID, _ := common.GetTraceIDFromContext(ctx)
	s.audit.Record(ctx, userID, models.ActionConsent, "",
		models.JSONB{"previewId": previewID.String(), "kind": "bill"}, nil, traceID)
	return preview, nil
}

func (s *billService) Execute(ctx context.Context, userID, previewID uuid.UUID, consentToken, bankReferenceID, status string) (*ExecuteResult, error) {
	if existing, err := s.ledger.GetBillPaymentByPreviewID(ctx, previewID); err == nil {
		return &ExecuteResult{
			TransactionID:   existing.ID,
			BankReferenceID: existing.BankReferenceID,
			Status:          existing.Status,
			Amount:          existing.Amount,
			Replayed:        true,
		}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	preview, err := s.previews.GetOwned(ctx, userID, previewID)
	if err != nil {
		return nil, err
	}
	if err := checkActionable(preview.Status, preview.ExpiresAt, models.PreviewStatusConfirmed); err != nil {
		return nil, err
	}
	if !preview.RulesResult.Allowed {
		return nil, common.NewBusinessRuleError(preview.RulesResult.Reasons...)
	}
	if err := s.verifyConsent(consentToken, userID, previewID); err != nil {
		return nil, err
	}
	if preview.ConsentToken == nil || subtle.ConstantTimeCompare([]byte(*preview.ConsentToken), []byte(consentToken)) != 1 {
		return nil, fmt.Errorf("%w: consent token does not match confirmed preview", common.ErrInvalidConsent)
	}

	txnStatus := models.TxnStatusSuccess
	debit := preview.FinalDebitAmount
	if status == models.TxnStatusFailed {
		txnStatus = models.TxnStatusFailed
		debit = 0
	}
	if bankReferenceID == "" {
		bankReferenceID = "BILL-" + strings.ToUpper(random.String(10))
	}

	payment := &models.BillPayment{
		UserID:          userID,
		FromAccountID:   preview.FromAccountID,
		BillPreviewID:   previewID,
		BillType:        preview.BillType,
		BillerName:      preview.BillerName,
		ConsumerNumber:  preview.ConsumerNumber,
		Amount:          preview.FinalDebitAmount,
		Status:          txnStatus,
		BankReferenceID: bankReferenceID,
		InitiatedBy:     models.InitiatedByVoiceAI,
	}

	err = s.ledger.ExecuteBill(ctx, preview.FromAccountID, debit, payment)
	switch {
	case errors.Is(err, common.ErrAlreadyExecuted):
		existing, getErr := s.ledger.GetBillPaymentByPreviewID(ctx, previewID)
		if getErr != nil {
			return nil, getErr
		}
		return &ExecuteResult{
			TransactionID:   existing.ID,
			BankReferenceID: existing.BankReferenceID,
			Status:          existing.Status,
			Amount:          existing.Amount,
			Replayed:        true,
		}, nil
	case errors.Is(err, common.ErrInsufficientBalance):
		return nil, common.NewBusinessRuleError("Insufficient balance")
	case err != nil:
		return nil, err
	}

	if err := s.previews.MarkExecuted(ctx, previewID); err != nil {
		log.Printf("bill execute: mark preview %s executed: %v", previewID, err)
	}
	traceID, _ := common.GetTraceIDFromContext(ctx)
	s.audit.Record(ctx, userID, models.ActionPayBill, "",
		models.JSONB{
			"previewId":       previewID.String(),
			"billPaymentId":   payment.ID.String(),
			"bankReferenceId": bankReferenceID,
			"status":          txnStatus,
		}, nil, traceID)

	return &ExecuteResult{
		TransactionID:   payment.ID,
		BankReferenceID: bankReferenceID,
		Status:          txnStatus,
		Amount:          payment.Amount,
	}, nil
}

func (s *billService) verifyConsent(token string, userID, previewID uuid.UUID) error {
	claims, err := s.codec.VerifyConsent(token)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConsent, err)
	}
	if claims.UserID != userID.String() || claims.PreviewID != previewID.String() {
		return fmt.Errorf("%w: token was issued for a different preview", common.ErrInvalidConsent)
	}
	return nil
}

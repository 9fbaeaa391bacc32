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

// PreviewTTL is how long a preview stays actionable after creation.
const PreviewTTL = 15 * time.Minute

type PaymentPreviewRequest struct {
	FromAccountID uuid.UUID `json:"fromAccountId"`
	BeneficiaryID uuid.UUID `json:"beneficiaryId"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	TraceID       string    `json:"traceId"`
}

// ExecuteResult is returned by Execute for both first runs and replays.
type ExecuteResult struct {
	TransactionID   uuid.UUID `json:"transactionId"`
	BankReferenceID string    `json:"bankReferenceId"`
	Status          string    `json:"status"`
	Amount          float64   `json:"amount"`
	Replayed        bool      `json:"replayed"`
}

type PaymentService interface {
	Preview(ctx context.Context, userID uuid.UUID, req PaymentPreviewRequest) (*models.PaymentPreview, error)
	Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) (*models.PaymentPreview, error)
	Execute(ctx context.Context, userID, previewID uuid.UUID, consentToken, bankReferenceID, status string) (*ExecuteResult, error)
}

type paymentService struct {
	previews      repositories.PaymentPreviewRepository
	accounts      repositories.AccountRepository
	beneficiaries repositories.BeneficiaryRepository
	ledger        repositories.LedgerRepository
	codec         TokenCodec
	audit         AuditService
}

func NewPaymentService(previews repositories.PaymentPreviewRepository, accounts repositories.AccountRepository, beneficiaries repositories.BeneficiaryRepository, ledger repositories.LedgerRepository, codec TokenCodec, audit AuditService) PaymentService {
	return &paymentService{
		previews:      previews,
		accounts:      accounts,
		beneficiaries: beneficiaries,
		ledger:        ledger,
		codec:         codec,
		audit:         audit,
	}
}

// Preview computes charges and business rules for a proposed payment and
// persists a PENDING preview. A preview that fails the rules is still stored
// with Allowed=false so the refusal is auditable; it can never be confirmed.
func (s *paymentService) Preview(ctx context.Context, userID uuid.UUID, req PaymentPreviewRequest) (*models.PaymentPreview, error) {
	if req.Amount <= 0 {
		return nil, common.NewBusinessRuleError("Payment amount must be greater than zero")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = models.MethodUPI
	}
	switch method {
	case models.MethodUPI, models.MethodIMPS, models.MethodNEFT:
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", common.ErrInvalidState, req.Method)
	}

	account, err := s.accounts.GetOwned(ctx, userID, req.FromAccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Status != models.AccountStatusActive {
		return nil, fmt.Errorf("%w: account is %s", common.ErrInvalidState, account.Status)
	}
	beneficiary, err := s.beneficiaries.GetActive(ctx, userID, req.BeneficiaryID)
	if err != nil {
		return nil, fmt.Errorf("load beneficiary: %w", err)
	}

	charges := CalculateCharges(method, req.Amount)
	finalDebit := Round2(req.Amount + charges)
	rules := evaluateRules(account.Balance, req.Amount, finalDebit)

	preview := &models.PaymentPreview{
		ID:               uuid.New(),
		UserID:           userID,
		FromAccountID:    account.ID,
		BeneficiaryID:    beneficiary.ID,
		Method:           method,
		RequestedAmount:  req.Amount,
		Charges:          charges,
		FinalDebitAmount: finalDebit,
		RulesResult:      rules,
		Status:           models.PreviewStatusPending,
		ExpiresAt:        time.Now().Add(PreviewTTL),
	}
	if err := s.previews.Create(ctx, preview); err != nil {
		return nil, fmt.Errorf("store preview: %w", err)
	}

	traceID := s.audit.Record(ctx, userID, models.ActionMakePayment, "",
		models.JSONB{"previewId": preview.ID.String(), "allowed": rules.Allowed},
		models.JSONB{
			"requestedAmount": req.Amount,
			"charges":         charges,
			"finalDebit":      finalDebit,
			"method":          method,
			"beneficiaryId":   beneficiary.ID.String(),
		}, req.TraceID)
	s.audit.AttachPreview(ctx, userID, traceID, preview.ID)
	return preview, nil
}

// Confirm flips a PENDING, unexpired, allowed preview to CONFIRMED and records
// the consent token that proved the human factor. The token must have been
// minted by the consent verifier for exactly this preview and user.
func (s *paymentService) Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) (*models.PaymentPreview, error) {
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
		models.JSONB{"previewId": previewID.String(), "kind": "payment"}, nil, traceID)
	return preview, nil
}

// Execute debits the account and writes the ledger row atomically. Replays
// with the same preview id return the already-recorded transaction unchanged.
func (s *paymentService) Execute(ctx context.Context, userID, previewID uuid.UUID, consentToken, bankReferenceID, status string) (*ExecuteResult, error) {
	// Fast path for replays. The unique ledger constraint is the source of
	// truth; the upfront read just avoids a doomed transaction.
	if existing, err := s.ledger.GetTransactionByPreviewID(ctx, previewID); err == nil {
		return replayResult(existing), nil
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
	// The token presented now must be the exact one recorded at Confirm.
	if preview.ConsentToken == nil || subtle.ConstantTimeCompare([]byte(*preview.ConsentToken), []byte(consentToken)) != 1 {
		return nil, fmt.Errorf("%w: consent token does not match confirmed preview", common.ErrInvalidConsent)
	}

	txnStatus := models.TxnStatusSuccess
	debit := preview.FinalDebitAmount
	if status == models.TxnStatusFailed {
		// Caller reports the external rail failed: record the attempt, move
		// no money.
		txnStatus = models.TxnStatusFailed
		debit = 0
	}
	if bankReferenceID == "" {
		bankReferenceID = "BNK" + strings.ToUpper(random.String(12))
	}

	txn := &models.Transaction{
		UserID:           userID,
		FromAccountID:    preview.FromAccountID,
		BeneficiaryID:    preview.BeneficiaryID,
		PaymentPreviewID: previewID,
		Method:           preview.Method,
		Amount:           preview.FinalDebitAmount,
		Status:           txnStatus,
		BankReferenceID:  bankReferenceID,
		InitiatedBy:      models.InitiatedByVoiceAI,
		Channel:          models.ChannelVoiceAgent,
	}

	err = s.ledger.ExecutePayment(ctx, preview.FromAccountID, debit, txn)
	switch {
	case errors.Is(err, common.ErrAlreadyExecuted):
		// Lost the race against a concurrent execute; surface the winner.
		existing, getErr := s.ledger.GetTransactionByPreviewID(ctx, previewID)
		if getErr != nil {
			return nil, getErr
		}
		return replayResult(existing), nil
	case errors.Is(err, common.ErrInsufficientBalance):
		return nil, common.NewBusinessRuleError("Insufficient balance")
	case err != nil:
		return nil, err
	}

	if err := s.previews.MarkExecuted(ctx, previewID); err != nil {
		log.Printf("payment execute: mark preview %s executed: %v", previewID, err)
	}
	traceID, _ := common.GetTraceIDFromContext(ctx)
	s.audit.Record(ctx, userID, models.ActionMakePayment, "",
		models.JSONB{
			"previewId":       previewID.String(),
			"transactionId":   txn.ID.String(),
			"bankReferenceId": bankReferenceID,
			"status":          txnStatus,
		}, nil, traceID)

	return &ExecuteResult{
		TransactionID:   txn.ID,
		BankReferenceID: bankReferenceID,
		Status:          txnStatus,
		Amount:          txn.Amount,
	}, nil
}

func (s *paymentService) verifyConsent(token string, userID, previewID uuid.UUID) error {
	claims, err := s.codec.VerifyConsent(token)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConsent, err)
	}
	if claims.UserID != userID.String() || claims.PreviewID != previewID.String() {
		return fmt.Errorf("%w: token was issued for a different preview", common.ErrInvalidConsent)
	}
	return nil
}

// evaluateRules applies the transparent business rules. Reasons are phrased
// for direct readback to the user.
func evaluateRules(balance, requestedAmount, finalDebit float64) models.RulesResult {
	var reasons []string
	if balance < finalDebit {
		reasons = append(reasons, fmt.Sprintf("Insufficient balance. Available: ₹%.2f, Required: ₹%.2f", balance, finalDebit))
	}
	if requestedAmount > PerTransactionLimit {
		reasons = append(reasons, fmt.Sprintf("Amount exceeds per-transaction limit of ₹%.0f", PerTransactionLimit))
	}
	return models.RulesResult{Allowed: len(reasons) == 0, Reasons: reasons}
}

// checkActionable enforces the preview lifecycle. Expiry wins over status so
// a stale preview reports ErrExpired rather than a state mismatch.
func checkActionable(status string, expiresAt time.Time, want string) error {
	if time.Now().After(expiresAt) && status != models.PreviewStatusExecuted {
		return fmt.Errorf("%w: preview expired at %s", common.ErrExpired, expiresAt.Format(time.RFC3339))
	}
	if status != want {
		return fmt.Errorf("%w: preview is %s, expected %s", common.ErrInvalidState, status, want)
	}
	return nil
}

func replayResult(txn *models.Transaction) *ExecuteResult {
	return &ExecuteResult{
		TransactionID:   txn.ID,
		BankReferenceID: txn.BankReferenceID,
		Status:          txn.Status,
		Amount:          txn.Amount,
		Replayed:        true,
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"voxbank/internal/models"
	"voxbank/internal/ratelimit"
)

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Create(ctx context.Context, grant *models.AuthorizationGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *MockGrantRepository) GetByCode(ctx context.Context, code string) (*models.AuthorizationGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationGrant), args.Error(1)
}

func (m *MockGrantRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGrantRepository) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentPreviewRepository struct {
	mock.Mock
}

func (m *MockPaymentPreviewRepository) Create(ctx context.Context, preview *models.PaymentPreview) error {
	args := m.Called(ctx, preview)
	return args.Error(0)
}

func (m *MockPaymentPreviewRepository) GetOwned(ctx context.Context, userID, previewID uuid.UUID) (*models.PaymentPreview, error) {
	args := m.Called(ctx, userID, previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentPreview), args.Error(1)
}

func (m *MockPaymentPreviewRepository) Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) error {
	args := m.Called(ctx, userID, previewID, consentToken)
	return args.Error(0)
}

func (m *MockPaymentPreviewRepository) MarkExecuted(ctx context.Context, previewID uuid.UUID) error {
	args := m.Called(ctx, previewID)
	return args.Error(0)
}

func (m *MockPaymentPreviewRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockBillPreviewRepository struct {
	mock.Mock
}

func (m *MockBillPreviewRepository) Create(ctx context.Context, preview *models.BillPreview) error {
	args := m.Called(ctx, preview)
	return args.Error(0)
}

func (m *MockBillPreviewRepository) GetOwned(ctx context.Context, userID, previewID uuid.UUID) (*models.BillPreview, error) {
	args := m.Called(ctx, userID, previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BillPreview), args.Error(1)
}

func (m *MockBillPreviewRepository) Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) error {
	args := m.Called(ctx, userID, previewID, consentToken)
	return args.Error(0)
}

func (m *MockBillPreviewRepository) MarkExecuted(ctx context.Context, previewID uuid.UUID) error {
	args := m.Called(ctx, previewID)
	return args.Error(0)
}

func (m *MockBillPreviewRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetOwned(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Account), args.Error(1)
}

type MockBeneficiaryRepository struct {
	mock.Mock
}

func (m *MockBeneficiaryRepository) Create(ctx context.Context, beneficiary *models.Beneficiary) error {
	args := m.Called(ctx, beneficiary)
	return args.Error(0)
}

func (m *MockBeneficiaryRepository) GetActive(ctx context.Context, userID, beneficiaryID uuid.UUID) (*models.Beneficiary, error) {
	args := m.Called(ctx, userID, beneficiaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Beneficiary), args.Error(1)
}

func (m *MockBeneficiaryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Beneficiary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Beneficiary), args.Error(1)
}

type MockBillerRepository struct {
	mock.Mock
}

func (m *MockBillerRepository) Create(ctx context.Context, biller *models.Biller) error {
	args := m.Called(ctx, biller)
	return args.Error(0)
}

func (m *MockBillerRepository) GetActive(ctx context.Context, userID uuid.UUID, billType, consumerNumber string) (*models.Biller, error) {
	args := m.Called(ctx, userID, billType, consumerNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Biller), args.Error(1)
}

func (m *MockBillerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Biller, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.Biller), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ExecutePayment(ctx context.Context, accountID uuid.UUID, debitAmount float64, txn *models.Transaction) error {
	args := m.Called(ctx, accountID, debitAmount, txn)
	return args.Error(0)
}

func (m *MockLedgerRepository) ExecuteBill(ctx context.Context, accountID uuid.UUID, debitAmount float64, payment *models.BillPayment) error {
	args := m.Called(ctx, accountID, debitAmount, payment)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetTransactionByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) GetBillPaymentByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.BillPayment, error) {
	args := m.Called(ctx, previewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BillPayment), args.Error(1)
}

func (m *MockLedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListBillPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.BillPayment, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*models.BillPayment), args.Error(1)
}

type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Upsert(ctx context.Context, entry *models.AgentAuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogsRepository) CountRecentByAction(ctx context.Context, userID uuid.UUID, action string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, action, since)
	return args.Int(0), args.Error(1)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AgentAuditLog, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.AgentAuditLog), args.Error(1)
}

func (m *MockAuditLogsRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*models.AgentAuditLog, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]*models.AgentAuditLog), args.Error(1)
}

type MockConsentRepository struct {
	mock.Mock
}

func (m *MockConsentRepository) GetPIN(ctx context.Context, userID uuid.UUID) (*models.UserPIN, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPIN), args.Error(1)
}

func (m *MockConsentRepository) UpsertPIN(ctx context.Context, userID uuid.UUID, pinHash string) error {
	args := m.Called(ctx, userID, pinHash)
	return args.Error(0)
}

func (m *MockConsentRepository) RecordPINAttempt(ctx context.Context, userID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error {
	args := m.Called(ctx, userID, failedAttempts, lockedUntil)
	return args.Error(0)
}

func (m *MockConsentRepository) GetVoiceProfile(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoiceProfile), args.Error(1)
}

func (m *MockConsentRepository) UpsertVoiceProfile(ctx context.Context, userID uuid.UUID, embedding []float64) error {
	args := m.Called(ctx, userID, embedding)
	return args.Error(0)
}

// stubLimiter always answers with a fixed allow/deny decision.
type stubLimiter struct {
	allowed bool
}

func (s *stubLimiter) Check(ctx context.Context, userID uuid.UUID, class ratelimit.Class) (ratelimit.Result, error) {
	return ratelimit.Result{Allowed: s.allowed, ResetAt: time.Now().Add(class.Window)}, nil
}

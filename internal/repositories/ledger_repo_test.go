package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"voxbank/internal/common"
	"voxbank/internal/models"
)

type LedgerRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      LedgerRepository
	userID    uuid.UUID
	accountID uuid.UUID
	context   context.Context
}

func (suite *LedgerRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewLedgerRepository(mock)
	suite.userID = uuid.New()
	suite.accountID = uuid.New()
	suite.context = context.Background()
}

func (suite *LedgerRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestLedgerRepoTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerRepoTestSuite))
}

func (suite *LedgerRepoTestSuite) transactionFixture() *models.Transaction {
	return &models.Transaction{
		ID:               uuid.New(),
		UserID:           suite.userID,
		FromAccountID:    suite.accountID,
		BeneficiaryID:    uuid.New(),
		PaymentPreviewID: uuid.New(),
		Method:           models.MethodUPI,
		Amount:           500,
		Status:           models.TxnStatusSuccess,
		BankReferenceID:  "BNKTEST",
		InitiatedBy:      models.InitiatedByVoiceAI,
		Channel:          models.ChannelVoiceAgent,
	}
}

func (suite *LedgerRepoTestSuite) TestExecutePayment_DebitAndInsertCommit() {
	txn := suite.transactionFixture()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec("UPDATE accounts").
		WithArgs(500.0, suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.UserID, txn.FromAccountID, txn.BeneficiaryID, txn.PaymentPreviewID,
			txn.Method, txn.Amount, txn.Status, txn.BankReferenceID, txn.InitiatedBy,
			txn.Channel, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()
	suite.mock.ExpectRollback()

	err := suite.repo.ExecutePayment(suite.context, suite.accountID, 500, txn)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

// The guarded decrement affects zero rows when the balance would go negative;
// the whole transaction rolls back and no ledger row is written.
func (suite *LedgerRepoTestSuite) TestExecutePayment_InsufficientBalanceRollsBack() {
	txn := suite.transactionFixture()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec("UPDATE accounts").
		WithArgs(500.0, suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.ExecutePayment(suite.context, suite.accountID, 500, txn)
	assert.ErrorIs(suite.T(), err, common.ErrInsufficientBalance)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

// A duplicate preview id violates the unique constraint; the caller converts
// this into an idempotent replay.
func (suite *LedgerRepoTestSuite) TestExecutePayment_UniqueViolation() {
	txn := suite.transactionFixture()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec("UPDATE accounts").
		WithArgs(500.0, suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec("INSERT INTO transactions").
		WithArgs(txn.ID, txn.UserID, txn.FromAccountID, txn.BeneficiaryID, txn.PaymentPreviewID,
			txn.Method, txn.Amount, txn.Status, txn.BankReferenceID, txn.InitiatedBy,
			txn.Channel, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_payment_preview_id_key"})
	suite.mock.ExpectRollback()

	err := suite.repo.ExecutePayment(suite.context, suite.accountID, 500, txn)
	assert.ErrorIs(suite.T(), err, common.ErrAlreadyExecuted)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *LedgerRepoTestSuite) TestGetTransactionByPreviewID_NotFound() {
	previewID := uuid.New()
	suite.mock.ExpectQuery(`(?s)SELECT (.+) FROM transactions`).
		WithArgs(previewID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := suite.repo.GetTransactionByPreviewID(suite.context, previewID)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *LedgerRepoTestSuite) TestExecuteBill_Commit() {
	payment := &models.BillPayment{
		ID:              uuid.New(),
		UserID:          suite.userID,
		FromAccountID:   suite.accountID,
		BillPreviewID:   uuid.New(),
		BillType:        "ELECTRICITY",
		BillerName:      "State Power Board",
		ConsumerNumber:  "CN-42",
		Amount:          1200,
		Status:          models.TxnStatusSuccess,
		BankReferenceID: "BILL-TEST",
		InitiatedBy:     models.InitiatedByVoiceAI,
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec("UPDATE accounts").
		WithArgs(1200.0, suite.accountID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectExec("INSERT INTO bill_payments").
		WithArgs(payment.ID, payment.UserID, payment.FromAccountID, payment.BillPreviewID,
			payment.BillType, payment.BillerName, payment.ConsumerNumber, payment.Amount,
			payment.Status, payment.BankReferenceID, payment.InitiatedBy, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()
	suite.mock.ExpectRollback()

	err := suite.repo.ExecuteBill(suite.context, suite.accountID, 1200, payment)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

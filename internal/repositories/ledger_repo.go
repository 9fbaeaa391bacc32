package repositories

import (
	"context"
	"errors"
	"time"

	"voxbank/internal/common"
	"voxbank/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository performs the one serialized operation in the system: the
// read-modify-write of an account balance paired with ledger-entry creation.
// Correctness across processes comes from the storage transaction plus the
// UNIQUE constraint on the preview id column, not from in-process locking.
type LedgerRepository interface {
	// ExecutePayment debits the account and inserts the transaction row in
	// one atomic unit. Returns common.ErrInsufficientBalance when the guarded
	// decrement would go negative, and common.ErrAlreadyExecuted when the
	// UNIQUE constraint on payment_preview_id fires (concurrent replay).
	ExecutePayment(ctx context.Context, accountID uuid.UUID, debitAmount float64, txn *models.Transaction) error
	// ExecuteBill is the bill-payment analogue of ExecutePayment.
	ExecuteBill(ctx context.Context, accountID uuid.UUID, debitAmount float64, payment *models.BillPayment) error

	GetTransactionByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.Transaction, error)
	GetBillPaymentByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.BillPayment, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, error)
	ListBillPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.BillPayment, error)
}

type ledgerRepo struct {
	db DB
}

func NewLedgerRepository(db DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) ExecutePayment(ctx context.Context, accountID uuid.UUID, debitAmount float64, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Guarded decrement: the balance >= $1 predicate rejects a debit that
	// would go negative without a separate read.
	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
	`, debitAmount, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, from_account_id, beneficiary_id, payment_preview_id,
			method, amount, status, bank_reference_id, initiated_by, channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		txn.ID, txn.UserID, txn.FromAccountID, txn.BeneficiaryID, txn.PaymentPreviewID,
		txn.Method, txn.Amount, txn.Status, txn.BankReferenceID, txn.InitiatedBy,
		txn.Channel, txn.CreatedAt,
	)
	if isUniqueViolation(err) {
		return common.ErrAlreadyExecuted
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ledgerRepo) ExecuteBill(ctx context.Context, accountID uuid.UUID, debitAmount float64, payment *models.BillPayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
	`, debitAmount, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bill_payments (id, user_id, from_account_id, bill_preview_id, bill_type,
			biller_name, consumer_number, amount, status, bank_reference_id, initiated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		payment.ID, payment.UserID, payment.FromAccountID, payment.BillPreviewID,
		payment.BillType, payment.BillerName, payment.ConsumerNumber, payment.Amount,
		payment.Status, payment.BankReferenceID, payment.InitiatedBy, payment.CreatedAt,
	)
	if isUniqueViolation(err) {
		return common.ErrAlreadyExecuted
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const transactionColumns = `id, user_id, from_account_id, beneficiary_id, payment_preview_id,
	method, amount, status, bank_reference_id, initiated_by, channel, created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.FromAccountID, &txn.BeneficiaryID, &txn.PaymentPreviewID,
		&txn.Method, &txn.Amount, &txn.Status, &txn.BankReferenceID, &txn.InitiatedBy,
		&txn.Channel, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *ledgerRepo) GetTransactionByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE payment_preview_id = $1
	`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, previewID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *ledgerRepo) GetBillPaymentByPreviewID(ctx context.Context, previewID uuid.UUID) (*models.BillPayment, error) {
	payment := &models.BillPayment{}
	query := `
		SELECT id, user_id, from_account_id, bill_preview_id, bill_type, biller_name,
			consumer_number, amount, status, bank_reference_id, initiated_by, created_at
		FROM bill_payments
		WHERE bill_preview_id = $1
	`
	err := r.db.QueryRow(ctx, query, previewID).Scan(
		&payment.ID, &payment.UserID, &payment.FromAccountID, &payment.BillPreviewID,
		&payment.BillType, &payment.BillerName, &payment.ConsumerNumber, &payment.Amount,
		&payment.Status, &payment.BankReferenceID, &payment.InitiatedBy, &payment.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *ledgerRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *ledgerRepo) ListBillPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.BillPayment, error) {
	query := `
		SELECT id, user_id, from_account_id, bill_preview_id, bill_type, biller_name,
			consumer_number, amount, status, bank_reference_id, initiated_by, created_at
		FROM bill_payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.BillPayment
	for rows.Next() {
		payment := &models.BillPayment{}
		if err := rows.Scan(
			&payment.ID, &payment.UserID, &payment.FromAccountID, &payment.BillPreviewID,
			&payment.BillType, &payment.BillerName, &payment.ConsumerNumber, &payment.Amount,
			&payment.Status, &payment.BankReferenceID, &payment.InitiatedBy, &payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

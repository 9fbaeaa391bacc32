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

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	// GetOwned returns the account only when it belongs to userID.
	GetOwned(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error)
}

type accountRepo struct {
	db DB
}

func NewAccountRepository(db DB) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, user_id, account_number, type, balance, currency, status, created_at, updated_at`

func (r *accountRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()

	query := `
		INSERT INTO accounts (id, user_id, account_number, type, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID, account.UserID, account.AccountNumber, account.Type,
		account.Balance, account.Currency, account.Status, account.CreatedAt,
	)
	return err
}

func (r *accountRepo) GetOwned(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, accountID, userID).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.Type, &account.Balance,
		&account.Currency, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(
			&account.ID, &account.UserID, &account.AccountNumber, &account.Type, &account.Balance,
			&account.Currency, &account.Status, &account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

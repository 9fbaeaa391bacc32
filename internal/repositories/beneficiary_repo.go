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

type BeneficiaryRepository interface {
	Create(ctx context.Context, beneficiary *models.Beneficiary) error
	// GetActive returns the beneficiary only when it belongs to userID and is active.
	GetActive(ctx context.Context, userID, beneficiaryID uuid.UUID) (*models.Beneficiary, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Beneficiary, error)
}

type beneficiaryRepo struct {
	db DB
}

func NewBeneficiaryRepository(db DB) BeneficiaryRepository {
	return &beneficiaryRepo{db: db}
}

func (r *beneficiaryRepo) Create(ctx context.Context, beneficiary *models.Beneficiary) error {
	if beneficiary.ID == uuid.Nil {
		beneficiary.ID = uuid.New()
	}
	beneficiary.CreatedAt = time.Now()

	query := `
		INSERT INTO beneficiaries (id, user_id, name, account_number, ifsc_code, nickname, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		beneficiary.ID, beneficiary.UserID, beneficiary.Name, beneficiary.AccountNumber,
		beneficiary.IFSCCode, beneficiary.Nickname, beneficiary.IsActive, beneficiary.CreatedAt,
	)
	return err
}

func (r *beneficiaryRepo) GetActive(ctx context.Context, userID, beneficiaryID uuid.UUID) (*models.Beneficiary, error) {
	beneficiary := &models.Beneficiary{}
	query := `
		SELECT id, user_id, name, account_number, ifsc_code, nickname, is_active, created_at
		FROM beneficiaries
		WHERE id = $1 AND user_id = $2 AND is_active = true
	`
	err := r.db.QueryRow(ctx, query, beneficiaryID, userID).Scan(
		&beneficiary.ID, &beneficiary.UserID, &beneficiary.Name, &beneficiary.AccountNumber,
		&beneficiary.IFSCCode, &beneficiary.Nickname, &beneficiary.IsActive, &beneficiary.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return beneficiary, nil
}

func (r *beneficiaryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Beneficiary, error) {
	query := `
		SELECT id, user_id, name, account_number, ifsc_code, nickname, is_active, created_at
		FROM beneficiaries
		WHERE user_id = $1 AND is_active = true
		ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beneficiaries []*models.Beneficiary
	for rows.Next() {
		beneficiary := &models.Beneficiary{}
		if err := rows.Scan(
			&beneficiary.ID, &beneficiary.UserID, &beneficiary.Name, &beneficiary.AccountNumber,
			&beneficiary.IFSCCode, &beneficiary.Nickname, &beneficiary.IsActive, &beneficiary.CreatedAt,
		); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, beneficiary)
	}
	return beneficiaries, rows.Err()
}

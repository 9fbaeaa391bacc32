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

type BillerRepository interface {
	Create(ctx context.Context, biller *models.Biller) error
	// GetActive looks up the user's active biller registration by bill type
	// and consumer number.
	GetActive(ctx context.Context, userID uuid.UUID, billType, consumerNumber string) (*models.Biller, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Biller, error)
}

type billerRepo struct {
	db DB
}

func NewBillerRepository(db DB) BillerRepository {
	return &billerRepo{db: db}
}

func (r *billerRepo) Create(ctx context.Context, biller *models.Biller) error {
	if biller.ID == uuid.Nil {
		biller.ID = uuid.New()
	}
	biller.CreatedAt = time.Now()

	query := `
		INSERT INTO billers (id, user_id, bill_type, name, consumer_number, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, bill_type, consumer_number) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		biller.ID, biller.UserID, biller.BillType, biller.Name,
		biller.ConsumerNumber, biller.IsActive, biller.CreatedAt,
	)
	return err
}

func (r *billerRepo) GetActive(ctx context.Context, userID uuid.UUID, billType, consumerNumber string) (*models.Biller, error) {
	biller := &models.Biller{}
	query := `
		SELECT id, user_id, bill_type, name, consumer_number, is_active, created_at
		FROM billers
		WHERE user_id = $1 AND bill_type = $2 AND consumer_number = $3 AND is_active = true
	`
	err := r.db.QueryRow(ctx, query, userID, billType, consumerNumber).Scan(
		&biller.ID, &biller.UserID, &biller.BillType, &biller.Name,
		&biller.ConsumerNumber, &biller.IsActive, &biller.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return biller, nil
}

func (r *billerRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Biller, error) {
	query := `
		SELECT id, user_id, bill_type, name, consumer_number, is_active, created_at
		FROM billers
		WHERE user_id = $1 AND is_active = true
		ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var billers []*models.Biller
	for rows.Next() {
		biller := &models.Biller{}
		if err := rows.Scan(
			&biller.ID, &biller.UserID, &biller.BillType, &biller.Name,
			&biller.ConsumerNumber, &biller.IsActive, &biller.CreatedAt,
		); err != nil {
			return nil, err
		}
		billers = append(billers, biller)
	}
	return billers, rows.Err()
}

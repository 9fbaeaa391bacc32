package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voxbank/internal/common"
	"voxbank/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BillPreviewRepository interface {
	Create(ctx context.Context, preview *models.BillPreview) error
	GetOwned(ctx context.Context, userID, previewID uuid.UUID) (*models.BillPreview, error)
	Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) error
	MarkExecuted(ctx context.Context, previewID uuid.UUID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type billPreviewRepo struct {
	db DB
}

func NewBillPreviewRepository(db DB) BillPreviewRepository {
	return &billPreviewRepo{db: db}
}

func (r *billPreviewRepo) Create(ctx context.Context, preview *models.BillPreview) error {
	if preview.ID == uuid.Nil {
		preview.ID = uuid.New()
	}
	preview.CreatedAt = time.Now()

	rules, err := json.Marshal(preview.RulesResult)
	if err != nil {
		return fmt.Errorf("failed to marshal rules_result: %w", err)
	}

	query := `
		INSERT INTO bill_previews (id, user_id, from_account_id, bill_type, biller_name, consumer_number,
			requested_amount, charges, final_debit_amount, rules_result, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.Exec(ctx, query,
		preview.ID, preview.UserID, preview.FromAccountID, preview.BillType, preview.BillerName,
		preview.ConsumerNumber, preview.RequestedAmount, preview.Charges, preview.FinalDebitAmount,
		rules, preview.Status, preview.ExpiresAt, preview.CreatedAt,
	)
	return err
}

func (r *billPreviewRepo) GetOwned(ctx context.Context, userID, previewID uuid.UUID) (*models.BillPreview, error) {
	preview := &models.BillPreview{}
	var rules []byte

	query := `
		SELECT id, user_id, from_account_id, bill_type, biller_name, consumer_number,
			requested_amount, charges, final_debit_amount, rules_result, status,
			consent_token, expires_at, created_at
		FROM bill_previews
		WHERE id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, previewID, userID).Scan(
		&preview.ID, &preview.UserID, &preview.FromAccountID, &preview.BillType,
		&preview.BillerName, &preview.ConsumerNumber, &preview.RequestedAmount,
		&preview.Charges, &preview.FinalDebitAmount, &rules, &preview.Status,
		&preview.ConsentToken, &preview.ExpiresAt, &preview.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &preview.RulesResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules_result: %w", err)
		}
	}
	return preview, nil
}

func (r *billPreviewRepo) Confirm(ctx context.Context, userID, previewID uuid.UUID, consentToken string) error {
	query := `
		UPDATE bill_previews
		SET status = $1, consent_token = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, models.PreviewStatusConfirmed, consentToken, previewID, userID, models.PreviewStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvalidState
	}
	return nil
}

func (r *billPreviewRepo) MarkExecuted(ctx context.Context, previewID uuid.UUID) error {
	query := `
		UPDATE bill_previews
		SET status = $1
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, models.PreviewStatusExecuted, previewID)
	return err
}

func (r *billPreviewRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE bill_previews
		SET status = $1
		WHERE status IN ($2, $3) AND expires_at < NOW()
	`
	tag, err := r.db.Exec(ctx, query, models.PreviewStatusExpired, models.PreviewStatusPending, models.PreviewStatusConfirmed)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

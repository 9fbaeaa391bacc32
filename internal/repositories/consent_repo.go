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

type ConsentRepository interface {
	GetPIN(ctx context.Context, userID uuid.UUID) (*models.UserPIN, error)
	UpsertPIN(ctx context.Context, userID uuid.UUID, pinHash string) error
	// RecordPINAttempt updates the failure counter; locked locks the PIN
	// until the given time on too many failures, a successful verify resets.
	RecordPINAttempt(ctx context.Context, userID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error

	GetVoiceProfile(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error)
	UpsertVoiceProfile(ctx context.Context, userID uuid.UUID, embedding []float64) error
}

type consentRepo struct {
	db DB
}

func NewConsentRepository(db DB) ConsentRepository {
	return &consentRepo{db: db}
}

func (r *consentRepo) GetPIN(ctx context.Context, userID uuid.UUID) (*models.UserPIN, error) {
	pin := &models.UserPIN{}
	query := `
		SELECT id, user_id, pin_hash, failed_attempts, locked_until, created_at, updated_at
		FROM user_pins
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&pin.ID, &pin.UserID, &pin.PINHash, &pin.FailedAttempts, &pin.LockedUntil,
		&pin.CreatedAt, &pin.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pin, nil
}

func (r *consentRepo) UpsertPIN(ctx context.Context, userID uuid.UUID, pinHash string) error {
	query := `
		INSERT INTO user_pins (id, user_id, pin_hash, failed_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			pin_hash = EXCLUDED.pin_hash,
			failed_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, uuid.New(), userID, pinHash)
	return err
}

func (r *consentRepo) RecordPINAttempt(ctx context.Context, userID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error {
	query := `
		UPDATE user_pins
		SET failed_attempts = $1, locked_until = $2, updated_at = NOW()
		WHERE user_id = $3
	`
	_, err := r.db.Exec(ctx, query, failedAttempts, lockedUntil, userID)
	return err
}

func (r *consentRepo) GetVoiceProfile(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error) {
	profile := &models.VoiceProfile{}
	var embedding []byte

	query := `
		SELECT id, user_id, embedding, created_at, updated_at
		FROM voice_profiles
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID, &profile.UserID, &embedding, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(embedding, &profile.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return profile, nil
}

func (r *consentRepo) UpsertVoiceProfile(ctx context.Context, userID uuid.UUID, embedding []float64) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := `
		INSERT INTO voice_profiles (id, user_id, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`
	_, err = r.db.Exec(ctx, query, uuid.New(), userID, data)
	return err
}
